package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evolvehq/DEVO/internal/config"
	"github.com/evolvehq/DEVO/internal/logging"
	"github.com/evolvehq/DEVO/internal/optimization"
	"github.com/evolvehq/DEVO/internal/optimization/differential"
	"github.com/evolvehq/DEVO/internal/optimization/parallel"
)

// Logger defines the logging interface used by the server.
// This allows us to be flexible with our logging implementation.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// JobState tracks one optimization job. States move from "pending" through
// "running" to one of "completed", "failed" or "cancelled"; it is safe for
// concurrent access through the server's lock.
type JobState struct {
	ID           string
	Status       string
	StartTime    time.Time
	EndTime      *time.Time
	Result       *optimization.Result
	BestSolution *optimization.Solution
	Optimizer    optimization.Optimizer
	CancelFunc   context.CancelFunc
	LastUpdated  time.Time
	Error        string
}

// Server implements the HTTP and JSON-RPC API of the optimization service:
// start a differential evolution job against a named objective, poll its
// progress, cancel it.
type Server struct {
	cfg    *config.Config
	logger Logger

	jobs   map[string]*JobState
	jobsMu sync.RWMutex
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		jobs:   make(map[string]*JobState),
	}
}

// RegisterRoutes attaches the API to a chi router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// OptimizeRequest is the body of POST /api/v1/optimize. Omitted tuning
// fields fall back to the service defaults from the environment.
type OptimizeRequest struct {
	// Objective names a built-in benchmark objective.
	Objective string      `json:"objective"`
	Bounds    [][]float64 `json:"bounds"`

	X0            []float64 `json:"x0,omitempty"`
	Strategy      string    `json:"strategy,omitempty"`
	MaxIter       int       `json:"maxiter,omitempty"`
	PopSize       int       `json:"popsize,omitempty"`
	Tol           *float64  `json:"tol,omitempty"`
	Mutation      []float64 `json:"mutation,omitempty"` // one value, or [min, max] for dithering
	Recombination *float64  `json:"recombination,omitempty"`
	Seed          int64     `json:"seed,omitempty"`
	Polish        *bool     `json:"polish,omitempty"`
	Init          string    `json:"init,omitempty"`
}

// startJob validates a request, builds the solver and launches the run in a
// goroutine. It returns the job ID.
func (s *Server) startJob(req *OptimizeRequest) (string, error) {
	objective, err := optimization.LookupObjective(req.Objective)
	if err != nil {
		return "", err
	}
	if len(req.Bounds) == 0 {
		return "", fmt.Errorf("bounds are required")
	}

	bounds := make([][2]float64, len(req.Bounds))
	for i, b := range req.Bounds {
		if len(b) != 2 {
			return "", fmt.Errorf("invalid bounds format, expected [[min1, max1], [min2, max2], ...]")
		}
		bounds[i] = [2]float64{b[0], b[1]}
	}

	cfg := differential.DefaultConfig()
	cfg.Bounds = bounds
	cfg.X0 = req.X0
	cfg.Strategy = s.cfg.Optimization.Strategy
	cfg.MaxIter = s.cfg.Optimization.MaxIterations
	cfg.PopSize = s.cfg.Optimization.PopSize
	cfg.Tol = s.cfg.Optimization.Tol
	cfg.Seed = req.Seed

	if req.Strategy != "" {
		cfg.Strategy = req.Strategy
	}
	if req.MaxIter > 0 {
		cfg.MaxIter = req.MaxIter
	}
	if req.PopSize > 0 {
		cfg.PopSize = req.PopSize
	}
	if req.Tol != nil {
		cfg.Tol = *req.Tol
	}
	switch len(req.Mutation) {
	case 0:
	case 1:
		cfg.Mutation = [2]float64{req.Mutation[0], req.Mutation[0]}
	case 2:
		cfg.Mutation = [2]float64{req.Mutation[0], req.Mutation[1]}
	default:
		return "", fmt.Errorf("mutation must be one value or a [min, max] pair")
	}
	if req.Recombination != nil {
		cfg.Recombination = *req.Recombination
	}
	if req.Polish != nil {
		cfg.Polish = *req.Polish
	}
	if req.Init != "" {
		cfg.Init = req.Init
	}

	zlog := logging.NewZapLogger(s.logger.WithFields(nil))
	cfg.Logger = zlog
	cfg.Func = parallel.NewPool(objective, s.cfg.Optimization.Workers, zlog)

	solver, err := differential.NewSolver(cfg)
	if err != nil {
		return "", err
	}

	id := fmt.Sprintf("opt_%d", time.Now().UnixNano())
	ctx, cancel := context.WithCancel(context.Background())

	state := &JobState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		Optimizer:   solver,
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.jobsMu.Lock()
	s.jobs[id] = state
	s.jobsMu.Unlock()

	jobsStarted.Inc()
	go s.runJob(ctx, state)

	return id, nil
}

// runJob executes one optimization to completion and records the outcome.
func (s *Server) runJob(ctx context.Context, state *JobState) {
	s.jobsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	result, err := state.Optimizer.Optimize(ctx)

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	switch {
	case errors.Is(err, context.Canceled):
		state.Status = "cancelled"
	case err != nil:
		s.logger.Error("optimization failed", map[string]interface{}{
			"optimization_id": state.ID,
			"error":           err.Error(),
		})
		state.Status = "failed"
		state.Error = err.Error()
	default:
		state.Status = "completed"
		state.Result = result
		state.BestSolution = result.BestSolution
		generationsTotal.Add(float64(result.Generations))
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	jobsCompleted.WithLabelValues(state.Status).Inc()
	jobDuration.Observe(now.Sub(state.StartTime).Seconds())
}

// jobStatus builds the status document for one job.
func (s *Server) jobStatus(id string) (map[string]interface{}, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("optimization not found")
	}

	response := map[string]interface{}{
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Error != "" {
		response["error"] = state.Error
	}

	if best := state.Optimizer.BestSolution(); best != nil {
		response["current_best"] = map[string]interface{}{
			"parameters": best.Parameters,
			"value":      best.Value,
		}
	}

	if history := state.Optimizer.History(); len(history) > 0 {
		entries := make([]map[string]interface{}, len(history))
		for i, gen := range history {
			entries[i] = map[string]interface{}{
				"generation":  gen.Generation,
				"best_value":  gen.BestValue,
				"convergence": gen.Convergence,
				"mutation":    gen.Mutation,
			}
		}
		response["history"] = entries
	}

	if state.Result != nil {
		response["result"] = map[string]interface{}{
			"parameters":  state.Result.BestSolution.Parameters,
			"value":       state.Result.BestSolution.Value,
			"generations": state.Result.Generations,
			"evaluations": state.Result.Evaluations,
			"reason":      string(state.Result.Reason),
			"polished":    state.Result.Polished,
		}
	}

	return response, nil
}

// cancelJob cancels a running job.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("optimization not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel optimization with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return nil
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	id, err := s.startJob(&req)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"optimization_id": id,
		"status":          "pending",
	})
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing optimization ID"})
		return
	}

	status, err := s.jobStatus(id)
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing optimization ID"})
		return
	}

	if err := s.cancelJob(id); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleJSONRPC handles JSON-RPC 2.0 requests on /rpc. The methods mirror the
// REST endpoints: optimization.start, optimization.status,
// optimization.cancel.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondRPCError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondRPCError(w, -32600, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var req OptimizeRequest
		if err = unmarshalFirstParam(request.Params, &req); err == nil {
			var id string
			if id, err = s.startJob(&req); err == nil {
				result = map[string]interface{}{"optimization_id": id, "status": "pending"}
			}
		}
	case "optimization.status":
		var p struct {
			OptimizationID string `json:"optimization_id"`
		}
		if err = unmarshalFirstParam(request.Params, &p); err == nil {
			result, err = s.jobStatus(p.OptimizationID)
		}
	case "optimization.cancel":
		var p struct {
			OptimizationID string `json:"optimization_id"`
		}
		if err = unmarshalFirstParam(request.Params, &p); err == nil {
			err = s.cancelJob(p.OptimizationID)
		}
	default:
		s.respondRPCError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondRPCError(w, -32000, err.Error(), request.ID)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func unmarshalFirstParam(params []json.RawMessage, dst interface{}) error {
	if len(params) == 0 {
		return fmt.Errorf("missing required parameters")
	}
	return json.Unmarshal(params[0], dst)
}

// respondRPCError sends a JSON-RPC 2.0 error response.
func (s *Server) respondRPCError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

// Close cancels every in-flight job.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}
