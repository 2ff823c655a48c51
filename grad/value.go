// Package grad is a tiny scalar reverse-mode automatic differentiation engine.
//
// Every operation builds a fresh node wired to its operands, so a sequence of
// calls grows a computation DAG on the fly. Calling Backward on any node walks
// that DAG in reverse topological order and fills in gradients via the chain
// rule.
package grad

import (
	"fmt"
	"math"
)

// Value is the core unit of the engine.
//
// Think of this as a "number with memory":
// - Data is the actual number used in calculations.
// - Grad is "how much the final output changes if this number changes a little."
// - Children points to the input nodes used to create this value.
// - LocalGrads stores local derivative factors, one per child.
//
// The local factors are captured at forward time, so a backward pass never
// re-reads operand data. A leaf node has no children and therefore nothing to
// propagate.
//
// Grad accumulates additively: a node feeding several downstream nodes receives
// the sum of all path-wise contributions, and a second Backward call without
// zeroing in between doubles leaf gradients. Resetting Grad between passes is
// the caller's job.
type Value struct {
	Data       float64
	Grad       float64
	Children   []*Value
	LocalGrads []float64
}

// NewValue creates a leaf node (a plain number with no parents).
func NewValue(data float64) *Value {
	return &Value{Data: data}
}

// Values lifts a slice of raw numbers into leaf nodes.
func Values(data []float64) []*Value {
	out := make([]*Value, len(data))
	for i, d := range data {
		out[i] = NewValue(d)
	}
	return out
}

// Add creates node z = x + y.
// Local derivatives:
// dz/dx = 1
// dz/dy = 1
func (v *Value) Add(other *Value) *Value {
	return &Value{
		Data:       v.Data + other.Data,
		Children:   []*Value{v, other},
		LocalGrads: []float64{1, 1},
	}
}

// Mul creates node z = x * y.
// Local derivatives:
// dz/dx = y
// dz/dy = x
func (v *Value) Mul(other *Value) *Value {
	return &Value{
		Data:       v.Data * other.Data,
		Children:   []*Value{v, other},
		LocalGrads: []float64{other.Data, v.Data},
	}
}

// Pow creates node z = x^p where both base and exponent are nodes.
//
// Local derivatives:
// dz/dx = p * x^(p-1), taken as 0 when x = 0
// dz/dp = x^p * ln(x), taken as 0 when x <= 0
//
// The zero fallbacks keep the backward pass finite where the mathematical
// derivative is undefined; the forward value still follows math.Pow.
func (v *Value) Pow(other *Value) *Value {
	a, b := v.Data, other.Data

	da := 0.0
	if a != 0 {
		da = b * math.Pow(a, b-1)
	}
	db := 0.0
	if a > 0 {
		db = math.Pow(a, b) * math.Log(a)
	}

	return &Value{
		Data:       math.Pow(a, b),
		Children:   []*Value{v, other},
		LocalGrads: []float64{da, db},
	}
}

// Div creates node z = x / y.
//
// Local derivatives:
// dz/dx = 1/y
// dz/dy = -x/y²
//
// A zero divisor is not guarded: the forward value and both factors become
// non-finite per IEEE-754 and propagate through the graph.
func (v *Value) Div(other *Value) *Value {
	return &Value{
		Data:       v.Data / other.Data,
		Children:   []*Value{v, other},
		LocalGrads: []float64{1 / other.Data, -v.Data / (other.Data * other.Data)},
	}
}

// Neg creates node z = -x.
func (v *Value) Neg() *Value {
	return v.MulFloat(-1)
}

// Sub creates node z = x - y, expressed as x + (-y).
func (v *Value) Sub(other *Value) *Value {
	return v.Add(other.Neg())
}

// AddFloat lifts c into a leaf node and adds it.
func (v *Value) AddFloat(c float64) *Value {
	return v.Add(NewValue(c))
}

// SubFloat lifts c into a leaf node and subtracts it.
func (v *Value) SubFloat(c float64) *Value {
	return v.Sub(NewValue(c))
}

// MulFloat lifts c into a leaf node and multiplies by it.
func (v *Value) MulFloat(c float64) *Value {
	return v.Mul(NewValue(c))
}

// DivFloat lifts c into a leaf node and divides by it.
func (v *Value) DivFloat(c float64) *Value {
	return v.Div(NewValue(c))
}

// PowFloat lifts p into a leaf node and raises to it.
func (v *Value) PowFloat(p float64) *Value {
	return v.Pow(NewValue(p))
}

// Log creates node z = ln(x).
// Local derivative:
// dz/dx = 1/x
func (v *Value) Log() *Value {
	return &Value{
		Data:       math.Log(v.Data),
		Children:   []*Value{v},
		LocalGrads: []float64{1 / v.Data},
	}
}

// Exp creates node z = e^x.
// Local derivative:
// dz/dx = e^x
func (v *Value) Exp() *Value {
	exp := math.Exp(v.Data)
	return &Value{
		Data:       exp,
		Children:   []*Value{v},
		LocalGrads: []float64{exp},
	}
}

// Relu applies the ReLU activation:
// relu(x) = max(0, x)
//
// Local derivative:
// 1 when x > 0, otherwise 0.
func (v *Value) Relu() *Value {
	grad := 0.0
	if v.Data > 0 {
		grad = 1.0
	}
	return &Value{
		Data:       math.Max(0, v.Data),
		Children:   []*Value{v},
		LocalGrads: []float64{grad},
	}
}

// LeakyRelu applies the leaky ReLU activation with slope alpha on the
// negative side:
// leaky_relu(x) = x when x >= 0, otherwise alpha*x
//
// Local derivative:
// 1 when x >= 0, otherwise alpha.
func (v *Value) LeakyRelu(alpha float64) *Value {
	data := v.Data
	grad := 1.0
	if v.Data < 0 {
		data = alpha * v.Data
		grad = alpha
	}
	return &Value{
		Data:       data,
		Children:   []*Value{v},
		LocalGrads: []float64{grad},
	}
}

// Elu applies the ELU activation:
// elu(x) = x when x >= 0, otherwise alpha*(e^x - 1)
//
// Local derivative:
// 1 when x >= 0, otherwise alpha*e^x.
func (v *Value) Elu(alpha float64) *Value {
	data := v.Data
	grad := 1.0
	if v.Data < 0 {
		data = alpha * (math.Exp(v.Data) - 1)
		grad = alpha * math.Exp(v.Data)
	}
	return &Value{
		Data:       data,
		Children:   []*Value{v},
		LocalGrads: []float64{grad},
	}
}

// Sigmoid applies the logistic activation:
// sigmoid(x) = 1 / (1 + e^(-x))
//
// Local derivative:
// sigmoid(x) * (1 - sigmoid(x))
func (v *Value) Sigmoid() *Value {
	s := 1 / (1 + math.Exp(-v.Data))
	return &Value{
		Data:       s,
		Children:   []*Value{v},
		LocalGrads: []float64{s * (1 - s)},
	}
}

// Tanh applies the hyperbolic tangent activation:
// tanh(x) = 2/(1 + e^(-2x)) - 1
//
// Local derivative:
// 1 - tanh(x)²
func (v *Value) Tanh() *Value {
	t := 2/(1+math.Exp(-2*v.Data)) - 1
	return &Value{
		Data:       t,
		Children:   []*Value{v},
		LocalGrads: []float64{1 - t*t},
	}
}

// Backward performs reverse-mode autodiff from this node to all ancestors.
//
// Process:
// 1) Build topological order so each node is visited only after its children.
// 2) Seed output gradient with 1 (dOutput/dOutput = 1).
// 3) Traverse graph in reverse topological order and accumulate gradients.
//
// Reverse append order guarantees every node runs before any of its children
// and after all of its consumers, so each node's Grad is fully accumulated by
// the time its contributions are pushed down.
func (v *Value) Backward() {
	topo := []*Value{}
	visited := make(map[*Value]bool)

	var buildTopo func(*Value)
	buildTopo = func(node *Value) {
		if visited[node] {
			return
		}
		visited[node] = true
		for _, child := range node.Children {
			buildTopo(child)
		}
		topo = append(topo, node)
	}
	buildTopo(v)

	v.Grad = 1
	for i := len(topo) - 1; i >= 0; i-- {
		curr := topo[i]
		for j, child := range curr.Children {
			child.Grad += curr.LocalGrads[j] * curr.Grad
		}
	}
}

// String renders the node for debugging.
func (v *Value) String() string {
	return fmt.Sprintf("Value(data=%.4f, grad=%.4f)", v.Data, v.Grad)
}
