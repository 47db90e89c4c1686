// Package server implements the HTTP API for asynchronous route
// optimization jobs: submit a stop set, poll the job, cancel it, or extend a
// completed route with one more delivery.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	apperrors "github.com/farlane/lastmile/internal/errors"
	"github.com/farlane/lastmile/internal/logging"
	"github.com/farlane/lastmile/internal/routing"
	"github.com/farlane/lastmile/internal/routing/anneal"
	"github.com/farlane/lastmile/internal/routing/matrix"
)

// Job states. Pending jobs have not started the matrix build yet; the other
// three are terminal.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// RouteJob tracks one optimization run from submission to terminal state.
// Fields are guarded by the server's job mutex.
type RouteJob struct {
	ID          string
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
	Stops       *routing.StopSet
	Matrix      *routing.DistanceMatrix
	Result      *routing.RouteResult
	Err         error
	Config      anneal.Config
	Optimizer   routing.Optimizer
	CancelFunc  context.CancelFunc
}

// Server manages route optimization jobs over HTTP.
type Server struct {
	provider   *matrix.Provider
	solver     anneal.Config
	reheat     float64
	logger     *logging.Logger
	zlog       *zap.Logger
	metrics    *Metrics
	graphNodes int
	graphArcs  int

	jobs   map[string]*RouteJob
	jobsMu sync.RWMutex
}

// Option overrides a server default.
type Option func(*Server)

// WithMetrics installs a shared metrics set; without it the server records
// into a private registry.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithReheatTemperature sets the starting temperature for add-stop
// re-optimization runs.
func WithReheatTemperature(t float64) Option {
	return func(s *Server) { s.reheat = t }
}

// WithGraphStats reports road network size on the health endpoint.
func WithGraphStats(nodes, arcs int) Option {
	return func(s *Server) {
		s.graphNodes = nodes
		s.graphArcs = arcs
	}
}

// NewServer creates the job server. solver holds the defaults that
// individual requests may override.
func NewServer(provider *matrix.Provider, solver anneal.Config, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.New(logging.InfoLevel, os.Stderr)
	}
	s := &Server{
		provider: provider,
		solver:   solver,
		reheat:   200,
		logger:   logger,
		jobs:     make(map[string]*RouteJob),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	s.zlog = logging.NewZapLogger(logger).Named("annealer")
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/routes", s.handleCreateRoute)
		r.Get("/routes/{id}", s.handleGetRoute)
		r.Delete("/routes/{id}", s.handleCancelRoute)
		r.Post("/routes/{id}/stops", s.handleAddStop)
	})
	r.Get("/health", s.handleHealth)
}

// handleCreateRoute accepts a stop set, starts an optimization job and
// returns 202 with the job ID.
func (s *Server) handleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	stops, err := routing.NewStopSet(req.Stops)
	if err != nil {
		s.writeError(w, r, statusForError(err), err.Error())
		return
	}
	cfg, err := req.Solver.apply(s.solver)
	if err != nil {
		s.writeError(w, r, statusForError(err), err.Error())
		return
	}

	job := s.newJob(cfg)
	go s.runJob(job, func(ctx context.Context) (*routing.StopSet, *routing.DistanceMatrix, error) {
		m, err := s.provider.Build(ctx, stops)
		if err != nil {
			return nil, nil, err
		}
		return stops, m, nil
	})

	s.logger.Info("route job accepted", map[string]interface{}{
		"job_id": job.ID,
		"stops":  stops.Len(),
	})
	s.writeJSON(w, r, http.StatusAccepted, s.snapshot(job.ID))
}

// handleGetRoute returns the current state of a job, including the result
// once it completes.
func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.jobsMu.RLock()
	_, ok := s.jobs[id]
	s.jobsMu.RUnlock()
	if !ok {
		s.writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.snapshot(id))
}

// handleCancelRoute cancels a pending or running job. Terminal jobs return
// 409.
func (s *Server) handleCancelRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.jobsMu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.jobsMu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	switch job.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		status := job.Status
		s.jobsMu.Unlock()
		s.writeError(w, r, http.StatusConflict, "job already "+status)
		return
	}
	cancel := job.CancelFunc
	now := time.Now()
	job.Status = StatusCancelled
	job.CompletedAt = &now
	s.jobsMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.logger.Info("route job cancelled", map[string]interface{}{"job_id": id})
	s.writeJSON(w, r, http.StatusOK, s.snapshot(id))
}

// handleAddStop re-optimizes a completed job with one more delivery. The
// existing matrix is extended rather than rebuilt and the previous best
// route seeds the new search at the reheat temperature.
func (s *Server) handleAddStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addStopRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	s.jobsMu.RLock()
	src, ok := s.jobs[id]
	if !ok {
		s.jobsMu.RUnlock()
		s.writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	if src.Status != StatusCompleted {
		status := src.Status
		s.jobsMu.RUnlock()
		s.writeError(w, r, http.StatusConflict, "job is "+status+", not completed")
		return
	}
	prevStops, prevMatrix, prevResult, prevCfg := src.Stops, src.Matrix, src.Result, src.Config
	s.jobsMu.RUnlock()

	// Validate the new stop now so the client gets a synchronous 4xx
	// instead of a failed job.
	if _, err := prevStops.Extend(req.Stop); err != nil {
		s.writeError(w, r, statusForError(err), err.Error())
		return
	}

	cfg := prevCfg
	cfg.InitialTemperature = s.reheat
	cfg.InitialRoute = append(prevResult.Route.Clone(), prevStops.Len())
	cfg, err := req.Solver.apply(cfg)
	if err != nil {
		s.writeError(w, r, statusForError(err), err.Error())
		return
	}

	job := s.newJob(cfg)
	go s.runJob(job, func(ctx context.Context) (*routing.StopSet, *routing.DistanceMatrix, error) {
		return s.provider.Extend(ctx, prevStops, prevMatrix, req.Stop)
	})

	s.logger.Info("route job extended", map[string]interface{}{
		"job_id":  job.ID,
		"from":    id,
		"stop_id": req.Stop.ID,
	})
	s.writeJSON(w, r, http.StatusAccepted, s.snapshot(job.ID))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if s.graphNodes > 0 {
		body["graph_nodes"] = s.graphNodes
		body["graph_arcs"] = s.graphArcs
	}
	s.writeJSON(w, r, http.StatusOK, body)
}

// newJob registers a pending job under a fresh ID.
func (s *Server) newJob(cfg anneal.Config) *RouteJob {
	job := &RouteJob{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
		Config:    cfg,
	}
	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()
	return job
}

// runJob drives one job: build (or extend) the matrix, then solve. The
// build step is injected because extensions reuse the source job's matrix.
func (s *Server) runJob(job *RouteJob, build func(context.Context) (*routing.StopSet, *routing.DistanceMatrix, error)) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.jobsMu.Lock()
	if job.Status != StatusPending {
		// Cancelled before it ever started.
		status := job.Status
		s.jobsMu.Unlock()
		s.metrics.jobsTotal.WithLabelValues(status).Inc()
		return
	}
	job.Status = StatusRunning
	job.CancelFunc = cancel
	s.jobsMu.Unlock()

	s.metrics.jobStarted()

	buildStart := time.Now()
	stops, m, err := build(ctx)
	if err != nil {
		s.finishJob(job, nil, apperrors.Wrap(err, "matrix build failed").WithOperation("matrix.Build"))
		return
	}
	s.metrics.observeMatrixBuild(time.Since(buildStart))

	s.jobsMu.Lock()
	job.Stops = stops
	job.Matrix = m
	cfg := job.Config
	s.jobsMu.Unlock()

	solveStart := time.Now()
	res, err := s.solve(ctx, job, stops, m, cfg)
	if err != nil {
		s.finishJob(job, nil, apperrors.Wrap(err, "solve failed").WithOperation("anneal.Solve"))
		return
	}
	s.metrics.observeSolve(time.Since(solveStart))
	s.finishJob(job, res, nil)
}

// solve runs the annealing search. Single searches expose the live
// optimizer on the job so status polls can report best-so-far progress;
// restart ensembles go through Solve and report only the final winner.
func (s *Server) solve(ctx context.Context, job *RouteJob, stops *routing.StopSet, m *routing.DistanceMatrix, cfg anneal.Config) (*routing.RouteResult, error) {
	if cfg.Restarts > 1 {
		return anneal.Solve(ctx, stops, m, cfg, s.zlog)
	}

	opt, err := anneal.New(stops, m, cfg, s.zlog)
	if err != nil {
		return nil, err
	}
	s.jobsMu.Lock()
	job.Optimizer = opt
	s.jobsMu.Unlock()
	return opt.Optimize(ctx)
}

// finishJob records the terminal state unless cancellation already did.
func (s *Server) finishJob(job *RouteJob, res *routing.RouteResult, err error) {
	now := time.Now()

	s.jobsMu.Lock()
	if job.Status == StatusRunning {
		switch {
		case err == nil:
			job.Status = StatusCompleted
			job.Result = res
		case errors.Is(err, context.Canceled):
			job.Status = StatusCancelled
		default:
			job.Status = StatusFailed
			job.Err = err
		}
		job.CompletedAt = &now
	}
	status := job.Status
	s.jobsMu.Unlock()

	s.metrics.jobFinished(status)

	switch status {
	case StatusCompleted:
		s.logger.Info("route job completed", map[string]interface{}{
			"job_id":     job.ID,
			"cost":       res.Cost,
			"iterations": res.Iterations,
		})
	case StatusFailed:
		s.logger.Error("route job failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	default:
		s.logger.Info("route job cancelled", map[string]interface{}{"job_id": job.ID})
	}
}

// snapshot renders a job's wire form under the read lock.
func (s *Server) snapshot(id string) jobResponse {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	job := s.jobs[id]
	resp := jobResponse{
		JobID:       job.ID,
		Status:      job.Status,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		Result:      job.Result,
	}
	if job.Status == StatusRunning && job.Optimizer != nil {
		if route, cost := job.Optimizer.Best(); len(route) > 0 {
			resp.BestCost = &cost
		}
	}
	if job.Err != nil {
		resp.Error = job.Err.Error()
	}
	return resp
}

// Close cancels every running job.
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
