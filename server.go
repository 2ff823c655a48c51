package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sync"

	"scalarflow/grad"
)

// Server owns HTTP handlers and shared application state.
//
// Why separate this from Model?
// - Model is "network math + parameters."
// - Server is "request handling + lifecycle/state wiring."
type Server struct {
	mu    sync.RWMutex
	model *Model
	data  []Sample
}

// NewServer creates an empty API server.
func NewServer() *Server {
	return &Server{}
}

// RegisterRoutes attaches all endpoints to the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux, webRoot fs.FS) {
	mux.HandleFunc("/api/init", s.handleInit)
	mux.HandleFunc("/api/train", s.handleTrain)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/trace", s.handleTrace)
	mux.Handle("/", http.FileServer(http.FS(webRoot)))
}

// snapshot reads current model/data atomically with shared lock.
func (s *Server) snapshot() (*Model, []Sample) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, append([]Sample(nil), s.data...)
}

// setModel swaps active model/data atomically with exclusive lock.
func (s *Server) setModel(model *Model, data []Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.data = append([]Sample(nil), data...)
}

// writeJSON is a helper to consistently send JSON responses.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeOptionalJSON decodes JSON when body is present.
// Empty bodies are treated as "use defaults" rather than errors.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}

// validateInit checks architecture and dataset shape before any allocation.
func validateInit(req InitRequest) error {
	if req.Inputs <= 0 {
		return fmt.Errorf("inputs must be > 0, got %d", req.Inputs)
	}
	if len(req.LayerSizes) == 0 {
		return fmt.Errorf("layer_sizes must not be empty")
	}
	for i, size := range req.LayerSizes {
		if size <= 0 {
			return fmt.Errorf("layer_sizes[%d] must be > 0, got %d", i, size)
		}
	}
	if req.LayerSizes[len(req.LayerSizes)-1] != 1 {
		return fmt.Errorf("last layer must have exactly 1 output, got %d", req.LayerSizes[len(req.LayerSizes)-1])
	}
	if len(req.Data) == 0 {
		return fmt.Errorf("data must not be empty")
	}
	for i, sample := range req.Data {
		if len(sample.Inputs) != req.Inputs {
			return fmt.Errorf("data[%d] has %d inputs, expected %d", i, len(sample.Inputs), req.Inputs)
		}
	}
	if req.Loss != "" && req.Loss != lossMSE && req.Loss != lossBCE {
		return fmt.Errorf("loss must be %q or %q, got %q", lossMSE, lossBCE, req.Loss)
	}
	return nil
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateInit(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.LearningRate <= 0 {
		req.LearningRate = 0.05
	}
	if req.Loss == "" {
		req.Loss = lossMSE
	}

	model := NewModel(req.Inputs, req.LayerSizes, req.Loss, req.LearningRate)
	s.setModel(model, req.Data)

	// Keep response shape compatible with the frontend.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"initialized","params":%d}`, len(model.Net.Parameters()))
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	model, data := s.snapshot()
	if model == nil {
		http.Error(w, "Model not initialized", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "No training data provided", http.StatusBadRequest)
		return
	}

	// Lock model during forward/backward/update to avoid concurrent mutation.
	model.mu.Lock()
	defer model.mu.Unlock()

	req := TrainRequest{}
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	steps := req.Steps
	if steps <= 0 {
		steps = 5
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 4
	}

	resp, err := TrainSteps(model, data, steps, batchSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	model, _ := s.snapshot()
	if model == nil {
		http.Error(w, "Model not initialized", http.StatusBadRequest)
		return
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	inputWidth := len(model.Net.Layers[0].Neurons[0].Weights)
	if len(req.Inputs) != inputWidth {
		http.Error(w, fmt.Sprintf("expected %d inputs, got %d", inputWidth, len(req.Inputs)), http.StatusBadRequest)
		return
	}

	outs := model.Net.Forward(grad.Values(req.Inputs))
	resp := PredictResponse{Outputs: make([]float64, len(outs))}
	for i, o := range outs {
		resp.Outputs[i] = o.Data
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	model, data := s.snapshot()
	if model == nil {
		http.Error(w, "Model not initialized", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "No training data provided", http.StatusBadRequest)
		return
	}

	model.mu.Lock()
	defer model.mu.Unlock()

	req := TraceRequest{}
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := TraceSample(model, data, req.SampleIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
