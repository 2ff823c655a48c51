// Package nn composes differentiable scalars into feed-forward neural
// networks: neuron → layer → multi-layer perceptron.
//
// Everything here is a consumer of the grad engine. A forward pass builds a
// fresh computation graph over the module's parameter nodes; training is the
// caller's loop of Backward, parameter update, and ZeroGrad.
package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"scalarflow/grad"
)

// Module is anything holding trainable parameter nodes.
//
// Parameters returns the flat list of all parameter nodes in an order that is
// stable across calls, so an external optimizer can keep per-parameter state
// by index. ZeroGrad resets every parameter's gradient accumulator; it must be
// called between backward passes.
type Module interface {
	Parameters() []*grad.Value
	ZeroGrad()
}

func zeroAll(params []*grad.Value) {
	for _, p := range params {
		p.Grad = 0
	}
}

// Neuron holds one weight per input plus a bias and computes a weighted sum,
// optionally passed through ReLU.
type Neuron struct {
	Weights []*grad.Value
	Bias    *grad.Value
	Nonlin  bool
}

// NewNeuron creates a neuron for inputSize inputs. Weights start uniform in
// (-1, 1), the bias at zero. nonlin selects ReLU activation; without it the
// neuron is a plain linear unit.
func NewNeuron(inputSize int, nonlin bool) *Neuron {
	n := &Neuron{
		Weights: make([]*grad.Value, inputSize),
		Bias:    grad.NewValue(0),
		Nonlin:  nonlin,
	}
	for i := range n.Weights {
		n.Weights[i] = grad.NewValue(rand.Float64()*2 - 1)
	}
	return n
}

// Forward computes the neuron's output node for input x.
func (n *Neuron) Forward(x []*grad.Value) *grad.Value {
	if len(x) != len(n.Weights) {
		panic(fmt.Sprintf("nn: neuron expects %d inputs, got %d", len(n.Weights), len(x)))
	}
	sum := n.Bias
	for i, w := range n.Weights {
		sum = sum.Add(w.Mul(x[i]))
	}
	if n.Nonlin {
		return sum.Relu()
	}
	return sum
}

// Parameters returns all weights followed by the bias.
func (n *Neuron) Parameters() []*grad.Value {
	out := make([]*grad.Value, 0, len(n.Weights)+1)
	out = append(out, n.Weights...)
	return append(out, n.Bias)
}

// ZeroGrad resets every parameter gradient to zero.
func (n *Neuron) ZeroGrad() {
	zeroAll(n.Parameters())
}

func (n *Neuron) String() string {
	kind := "Linear"
	if n.Nonlin {
		kind = "ReLU"
	}
	return fmt.Sprintf("%sNeuron(%d)", kind, len(n.Weights))
}

// Layer is a fixed set of neurons sharing the same input width.
type Layer struct {
	Neurons []*Neuron
}

// NewLayer creates outputSize neurons of inputSize inputs each.
func NewLayer(inputSize, outputSize int, nonlin bool) *Layer {
	l := &Layer{Neurons: make([]*Neuron, outputSize)}
	for i := range l.Neurons {
		l.Neurons[i] = NewNeuron(inputSize, nonlin)
	}
	return l
}

// Forward computes every neuron's output in neuron order.
func (l *Layer) Forward(x []*grad.Value) []*grad.Value {
	out := make([]*grad.Value, len(l.Neurons))
	for i, n := range l.Neurons {
		out[i] = n.Forward(x)
	}
	return out
}

// Parameters returns the concatenation of all neuron parameters.
func (l *Layer) Parameters() []*grad.Value {
	out := []*grad.Value{}
	for _, n := range l.Neurons {
		out = append(out, n.Parameters()...)
	}
	return out
}

// ZeroGrad resets every parameter gradient to zero.
func (l *Layer) ZeroGrad() {
	zeroAll(l.Parameters())
}

func (l *Layer) String() string {
	parts := make([]string, len(l.Neurons))
	for i, n := range l.Neurons {
		parts[i] = n.String()
	}
	return fmt.Sprintf("Layer[%s]", strings.Join(parts, ", "))
}

// MLP chains fully connected layers, feeding each layer's output into the
// next. All layers use ReLU except the last, which stays linear so the
// network can produce unbounded outputs.
type MLP struct {
	Layers []*Layer
}

// NewMLP builds a perceptron taking inputSize inputs through layers of the
// given sizes. NewMLP(3, []int{4, 1}) is a 3 → 4 → 1 network.
func NewMLP(inputSize int, layerSizes []int) *MLP {
	sizes := append([]int{inputSize}, layerSizes...)
	m := &MLP{Layers: make([]*Layer, len(layerSizes))}
	for i := range layerSizes {
		nonlin := i != len(layerSizes)-1
		m.Layers[i] = NewLayer(sizes[i], sizes[i+1], nonlin)
	}
	return m
}

// Forward runs the full network and returns the last layer's outputs.
func (m *MLP) Forward(x []*grad.Value) []*grad.Value {
	for _, l := range m.Layers {
		x = l.Forward(x)
	}
	return x
}

// ForwardOne runs the network and returns its single output node. It panics
// when the last layer has more than one neuron.
func (m *MLP) ForwardOne(x []*grad.Value) *grad.Value {
	out := m.Forward(x)
	if len(out) != 1 {
		panic(fmt.Sprintf("nn: ForwardOne on a network with %d outputs", len(out)))
	}
	return out[0]
}

// Parameters returns the concatenation of all layer parameters.
func (m *MLP) Parameters() []*grad.Value {
	out := []*grad.Value{}
	for _, l := range m.Layers {
		out = append(out, l.Parameters()...)
	}
	return out
}

// ZeroGrad resets every parameter gradient to zero.
func (m *MLP) ZeroGrad() {
	zeroAll(m.Parameters())
}

func (m *MLP) String() string {
	parts := make([]string, len(m.Layers))
	for i, l := range m.Layers {
		parts[i] = l.String()
	}
	return fmt.Sprintf("MLP[%s]", strings.Join(parts, ", "))
}
