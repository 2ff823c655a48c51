package main

// Sample is one labeled training example.
type Sample struct {
	Inputs []float64 `json:"inputs"`
	Target float64   `json:"target"`
}

// InitRequest is the payload for /api/init.
// It provides the network architecture, training hyperparameters, and the
// dataset to train on.
type InitRequest struct {
	Inputs       int      `json:"inputs"`
	LayerSizes   []int    `json:"layer_sizes"`
	LearningRate float64  `json:"learning_rate"`
	Loss         string   `json:"loss"`
	Data         []Sample `json:"data"`
}

// TrainRequest controls how much work /api/train performs in one call.
//
// All fields are optional; server uses safe defaults when omitted.
type TrainRequest struct {
	Steps     int `json:"steps"`
	BatchSize int `json:"batch_size"`
}

// TrainResponse reports a training call summary.
type TrainResponse struct {
	Step           int     `json:"step"`
	Loss           float64 `json:"loss"`
	LastTarget     float64 `json:"last_target"`
	LastPrediction float64 `json:"last_prediction"`
}

// PredictRequest asks for one forward pass over raw inputs.
type PredictRequest struct {
	Inputs []float64 `json:"inputs"`
}

// PredictResponse carries the network outputs for a prediction.
type PredictResponse struct {
	Outputs []float64 `json:"outputs"`
}

// TraceRequest selects the dataset example for /api/trace.
type TraceRequest struct {
	SampleIndex int `json:"sample_index"`
}

// TraceParam is one trainable parameter with the gradient it received in the
// traced backward pass.
type TraceParam struct {
	Layer  int     `json:"layer"`
	Neuron int     `json:"neuron"`
	Kind   string  `json:"kind"`
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
	Grad   float64 `json:"grad"`
}

// TraceResponse explains one forward+backward pass without updating weights:
// the loss, the prediction, and every parameter's gradient.
type TraceResponse struct {
	SampleIndex int          `json:"sample_index"`
	Loss        float64      `json:"loss"`
	Prediction  float64      `json:"prediction"`
	Target      float64      `json:"target"`
	Params      []TraceParam `json:"params"`
}
