package main

import (
	"fmt"
	"math/rand"
	"sync"

	"scalarflow/grad"
	"scalarflow/nn"
)

// Supported loss functions.
const (
	lossMSE = "mse"
	lossBCE = "bce"
)

// Model bundles the network with its training hyperparameters and step
// counter.
//
// mu serializes forward/backward/update cycles: the engine itself is
// single-threaded, so concurrent HTTP requests must take turns.
type Model struct {
	Net          *nn.MLP
	Loss         string
	LearningRate float64
	Steps        int
	mu           sync.Mutex
}

// NewModel builds an MLP of the given architecture.
func NewModel(inputs int, layerSizes []int, loss string, learningRate float64) *Model {
	return &Model{
		Net:          nn.NewMLP(inputs, layerSizes),
		Loss:         loss,
		LearningRate: learningRate,
	}
}

// sampleLoss runs one forward pass and builds the loss graph for a sample.
//
// It returns the loss node plus the reported prediction: the raw network
// output for regression, the sigmoid probability for binary cross-entropy.
func sampleLoss(net *nn.MLP, s Sample, lossKind string) (loss *grad.Value, prediction float64) {
	out := net.ForwardOne(grad.Values(s.Inputs))

	if lossKind == lossBCE {
		// -(t*ln(p) + (1-t)*ln(1-p)) with p = sigmoid(output).
		p := out.Sigmoid()
		posTerm := p.Log().MulFloat(s.Target)
		negTerm := p.Neg().AddFloat(1).Log().MulFloat(1 - s.Target)
		return posTerm.Add(negTerm).MulFloat(-1), p.Data
	}

	// Squared error by default.
	diff := out.SubFloat(s.Target)
	return diff.Mul(diff), out.Data
}

// TrainSteps runs multiple gradient-descent steps, each accumulating
// gradients over a mini-batch of random examples.
//
// Per step: gradients are zeroed, every example's loss backpropagates into
// the same accumulators, the sum is scaled by 1/batch so the update magnitude
// stays stable, and each parameter moves against its gradient.
func TrainSteps(model *Model, data []Sample, steps, batchSize int) (TrainResponse, error) {
	if len(data) == 0 {
		return TrainResponse{}, fmt.Errorf("training dataset is empty")
	}
	if steps < 1 {
		steps = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}

	resp := TrainResponse{}
	avgLossAcrossSteps := 0.0

	for step := 0; step < steps; step++ {
		// Ensure gradients are clean before accumulating batch gradients.
		model.Net.ZeroGrad()

		batchLoss := 0.0
		for b := 0; b < batchSize; b++ {
			s := data[rand.Intn(len(data))]
			loss, prediction := sampleLoss(model.Net, s, model.Loss)
			loss.Backward()

			batchLoss += loss.Data
			resp.LastTarget = s.Target
			resp.LastPrediction = prediction
		}

		scale := 1.0 / float64(batchSize)
		for _, p := range model.Net.Parameters() {
			p.Data -= model.LearningRate * scale * p.Grad
		}

		model.Steps++
		avgLossAcrossSteps += batchLoss / float64(batchSize)
	}

	resp.Step = model.Steps
	resp.Loss = avgLossAcrossSteps / float64(steps)
	return resp, nil
}

// TraceSample runs one forward+backward pass on a single example without
// touching the weights, and reports every parameter's gradient.
//
// Gradients are zeroed before and after, so tracing never contaminates a
// training run.
func TraceSample(model *Model, data []Sample, sampleIndex int) (TraceResponse, error) {
	if sampleIndex < 0 || sampleIndex >= len(data) {
		return TraceResponse{}, fmt.Errorf("sample index %d out of range [0, %d)", sampleIndex, len(data))
	}

	model.Net.ZeroGrad()
	s := data[sampleIndex]
	loss, prediction := sampleLoss(model.Net, s, model.Loss)
	loss.Backward()

	resp := TraceResponse{
		SampleIndex: sampleIndex,
		Loss:        loss.Data,
		Prediction:  prediction,
		Target:      s.Target,
	}
	for li, layer := range model.Net.Layers {
		for ni, neuron := range layer.Neurons {
			for wi, w := range neuron.Weights {
				resp.Params = append(resp.Params, TraceParam{
					Layer: li, Neuron: ni, Kind: "weight", Index: wi,
					Value: w.Data, Grad: w.Grad,
				})
			}
			resp.Params = append(resp.Params, TraceParam{
				Layer: li, Neuron: ni, Kind: "bias",
				Value: neuron.Bias.Data, Grad: neuron.Bias.Grad,
			})
		}
	}

	model.Net.ZeroGrad()
	return resp, nil
}
