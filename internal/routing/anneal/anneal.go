// Package anneal implements simulated annealing over a precomputed distance
// matrix. The search is sequential and deterministic for a fixed seed; the
// only sanctioned parallelism is running independent restarts, see Solve.
package anneal

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farlane/lastmile/internal/routing"
)

// tracePrealloc bounds the up-front trace allocation. Runs with larger
// iteration budgets grow the trace on append.
const tracePrealloc = 4096

// Annealer searches for a low-cost visiting order with simulated annealing.
// One Annealer runs one search; Best and Trace may be polled from other
// goroutines while Optimize is running.
type Annealer struct {
	stops  *routing.StopSet
	matrix *routing.DistanceMatrix
	cfg    Config
	eval   *routing.Evaluator
	logger *zap.Logger
	seed   int64

	mu        sync.Mutex
	bestRoute routing.Route
	bestCost  float64
	trace     []routing.TracePoint
	cancel    context.CancelFunc
}

// New validates the configuration against the stop set and matrix and
// returns a ready Annealer. A nil logger disables logging.
func New(stops *routing.StopSet, matrix *routing.DistanceMatrix, cfg Config, logger *zap.Logger) (*Annealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stops == nil {
		return nil, routing.NewInputError("stops", "stop set is required")
	}
	if matrix == nil {
		return nil, routing.NewInputError("matrix", "distance matrix is required")
	}
	if matrix.Len() != stops.Len() {
		return nil, routing.NewInputErrorf("matrix", "dimension %d does not match stop count %d", matrix.Len(), stops.Len())
	}
	if len(cfg.InitialRoute) > 0 {
		if err := routing.ValidateRoute(cfg.InitialRoute, stops.Len()); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annealer{
		stops:  stops,
		matrix: matrix,
		cfg:    cfg,
		eval:   routing.NewEvaluator(cfg.ClosedTour),
		logger: logger,
		seed:   effectiveSeed(cfg.RandomSeed),
	}, nil
}

// Optimize runs the annealing loop to completion and returns the best route
// found. Cancellation is checked between iterations; an interrupted run
// returns ctx.Err() and leaves the best-so-far state readable through Best.
func (a *Annealer) Optimize(ctx context.Context) (*routing.RouteResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.setCancel(cancel)

	n := a.stops.Len()
	start := time.Now()

	current := routing.IdentityRoute(n)
	if len(a.cfg.InitialRoute) > 0 {
		current = a.cfg.InitialRoute.Clone()
	}
	currentCost := a.eval.Evaluate(current, a.matrix)
	initialCost := currentCost

	best := current.Clone()
	bestCost := currentCost

	traceCap := a.cfg.MaxIterations + 1
	if traceCap > tracePrealloc {
		traceCap = tracePrealloc
	}
	a.mu.Lock()
	a.bestRoute = best
	a.bestCost = bestCost
	a.trace = make([]routing.TracePoint, 0, traceCap)
	a.trace = append(a.trace, routing.TracePoint{Iteration: 0, Cost: bestCost})
	a.mu.Unlock()

	a.logger.Info("annealing started",
		zap.Int("stops", n),
		zap.Int64("seed", a.seed),
		zap.String("strategy", string(a.cfg.NeighborStrategy)),
		zap.Float64("initial_cost", initialCost),
	)

	// With a depot and a single delivery there is exactly one visiting
	// order; the initial route is already optimal.
	if n == 2 {
		res := a.result(initialCost, 0, true)
		a.logger.Info("annealing finished",
			zap.Float64("best_cost", res.Cost),
			zap.Int("iterations", res.Iterations),
			zap.Bool("converged", res.Converged),
			zap.Duration("elapsed", time.Since(start)),
		)
		return res, nil
	}

	rng := rand.New(rand.NewSource(a.seed))
	temp := a.cfg.InitialTemperature
	deadline := start.Add(a.cfg.MaxDuration)
	executed := 0

	for iter := 1; iter <= a.cfg.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if temp < a.cfg.MinTemperature {
			break
		}
		if time.Now().After(deadline) {
			a.logger.Warn("annealing stopped on wall-clock budget",
				zap.Int("iterations", executed),
				zap.Duration("elapsed", time.Since(start)),
			)
			break
		}

		candidate := current.Clone()
		applyMove(a.cfg.NeighborStrategy, candidate, rng)
		candidateCost := a.eval.Evaluate(candidate, a.matrix)

		// The draw is consumed unconditionally so the rng stream does not
		// depend on move quality.
		draw := rng.Float64()
		if acceptMove(candidateCost-currentCost, temp, draw) {
			current, currentCost = candidate, candidateCost
			if currentCost < bestCost {
				best = current.Clone()
				bestCost = currentCost
				a.recordBest(best, bestCost)
			}
		}

		temp *= a.cfg.CoolingRate
		executed = iter
		a.appendTrace(routing.TracePoint{Iteration: iter, Cost: bestCost})
	}

	converged := temp < a.cfg.MinTemperature
	res := a.result(initialCost, executed, converged)
	a.logger.Info("annealing finished",
		zap.Float64("best_cost", res.Cost),
		zap.Float64("improvement_pct", res.ImprovementPct),
		zap.Int("iterations", res.Iterations),
		zap.Bool("converged", res.Converged),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Best returns a copy of the best route and its cost found so far. Safe to
// call while Optimize is running.
func (a *Annealer) Best() (routing.Route, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bestRoute.Clone(), a.bestCost
}

// Trace returns a copy of the convergence samples recorded so far.
func (a *Annealer) Trace() []routing.TracePoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]routing.TracePoint, len(a.trace))
	copy(out, a.trace)
	return out
}

// Stop cancels a running Optimize. Calling it before or after a run is a
// no-op.
func (a *Annealer) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// acceptMove is the Metropolis acceptance rule as a pure decision: an
// improving move always passes, a worsening move passes when the uniform
// draw falls below exp(-delta/temperature). At non-positive temperatures
// only improvements pass.
func acceptMove(delta, temperature, draw float64) bool {
	if delta < 0 {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return draw < math.Exp(-delta/temperature)
}

// result snapshots the guarded search state into an immutable RouteResult.
func (a *Annealer) result(initialCost float64, iterations int, converged bool) *routing.RouteResult {
	a.mu.Lock()
	route := a.bestRoute.Clone()
	cost := a.bestCost
	trace := make([]routing.TracePoint, len(a.trace))
	copy(trace, a.trace)
	a.mu.Unlock()

	return &routing.RouteResult{
		Route:          route,
		StopIDs:        routing.StopIDsForRoute(a.stops, route, a.cfg.ClosedTour),
		Cost:           cost,
		InitialCost:    initialCost,
		ImprovementPct: routing.ImprovementPct(initialCost, cost),
		Iterations:     iterations,
		Converged:      converged,
		Seed:           a.seed,
		ClosedTour:     a.cfg.ClosedTour,
		Trace:          trace,
	}
}

func (a *Annealer) recordBest(route routing.Route, cost float64) {
	a.mu.Lock()
	a.bestRoute = route
	a.bestCost = cost
	a.mu.Unlock()
}

func (a *Annealer) appendTrace(p routing.TracePoint) {
	a.mu.Lock()
	a.trace = append(a.trace, p)
	a.mu.Unlock()
}

func (a *Annealer) setCancel(cancel context.CancelFunc) {
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
}
