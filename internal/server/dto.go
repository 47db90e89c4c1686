package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/farlane/lastmile/internal/routing"
	"github.com/farlane/lastmile/internal/routing/anneal"
)

// routeRequest starts a new optimization job.
type routeRequest struct {
	Stops  []routing.Stop `json:"stops"`
	Solver *solverPayload `json:"solver"`
}

// addStopRequest re-optimizes a completed job with one more delivery.
type addStopRequest struct {
	Stop   routing.Stop   `json:"stop"`
	Solver *solverPayload `json:"solver"`
}

// solverPayload carries per-request overrides of the solver defaults. Only
// set fields override; absent and null both mean "keep the default".
type solverPayload struct {
	InitialTemperature *float64 `json:"initial_temperature"`
	CoolingRate        *float64 `json:"cooling_rate"`
	MinTemperature     *float64 `json:"min_temperature"`
	MaxIterations      *int     `json:"max_iterations"`
	MaxDurationMs      *int64   `json:"max_duration_ms"`
	NeighborStrategy   *string  `json:"neighbor_strategy"`
	RandomSeed         *int64   `json:"random_seed"`
	ClosedTour         *bool    `json:"closed_tour"`
	Restarts           *int     `json:"restarts"`
}

// apply overlays the payload onto cfg and validates the result.
func (p *solverPayload) apply(cfg anneal.Config) (anneal.Config, error) {
	if p == nil {
		return cfg, nil
	}
	if p.InitialTemperature != nil {
		cfg.InitialTemperature = *p.InitialTemperature
	}
	if p.CoolingRate != nil {
		cfg.CoolingRate = *p.CoolingRate
	}
	if p.MinTemperature != nil {
		cfg.MinTemperature = *p.MinTemperature
	}
	if p.MaxIterations != nil {
		cfg.MaxIterations = *p.MaxIterations
	}
	if p.MaxDurationMs != nil {
		cfg.MaxDuration = time.Duration(*p.MaxDurationMs) * time.Millisecond
	}
	if p.NeighborStrategy != nil {
		strategy, err := anneal.ParseStrategy(*p.NeighborStrategy)
		if err != nil {
			return cfg, err
		}
		cfg.NeighborStrategy = strategy
	}
	if p.RandomSeed != nil {
		cfg.RandomSeed = *p.RandomSeed
	}
	if p.ClosedTour != nil {
		cfg.ClosedTour = *p.ClosedTour
	}
	if p.Restarts != nil {
		cfg.Restarts = *p.Restarts
	}
	return cfg, cfg.Validate()
}

// jobResponse is the wire form of a job's state. Result and Error are only
// present in terminal states.
type jobResponse struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// BestCost reports the best cost found so far while the job is still
	// running; the final cost lives on Result.
	BestCost *float64             `json:"best_cost,omitempty"`
	Result   *routing.RouteResult `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON decodes exactly one JSON object from the request body,
// rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

// statusForError maps the routing error taxonomy onto HTTP statuses: bad
// requests for input and config violations, unprocessable entities for
// stops the road network cannot serve.
func statusForError(err error) int {
	if _, ok := routing.AsInputError(err); ok {
		return http.StatusBadRequest
	}
	if _, ok := routing.AsConfigError(err); ok {
		return http.StatusBadRequest
	}
	if _, ok := routing.AsUnreachableStopError(err); ok {
		return http.StatusUnprocessableEntity
	}
	if _, ok := routing.AsNoPathError(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
