package anneal

import (
	"math"
	"strings"
	"time"

	"github.com/farlane/lastmile/internal/routing"
)

// Strategy selects how neighbor routes are proposed during the search.
type Strategy string

const (
	// StrategySwap exchanges two delivery stops per iteration.
	StrategySwap Strategy = "swap"
	// StrategySegmentReverse reverses a contiguous segment per iteration.
	StrategySegmentReverse Strategy = "segmentReverse"
	// StrategyMixed picks between swap and segment reversal each iteration.
	StrategyMixed Strategy = "mixed"
)

// ParseStrategy converts a wire-format strategy name into a Strategy.
// Matching is case-insensitive and accepts the snake_case spelling.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "swap":
		return StrategySwap, nil
	case "segmentreverse", "segment_reverse":
		return StrategySegmentReverse, nil
	case "mixed":
		return StrategyMixed, nil
	default:
		return "", routing.NewConfigErrorf("neighborStrategy", "unknown strategy %q", s)
	}
}

// Config holds the annealing schedule and search parameters.
type Config struct {
	// InitialTemperature is the starting temperature. Must be positive.
	InitialTemperature float64

	// CoolingRate is the geometric decay factor applied after every
	// iteration. Must lie strictly between 0 and 1.
	CoolingRate float64

	// MinTemperature stops the search once the temperature falls below it.
	// Must not be negative.
	MinTemperature float64

	// MaxIterations caps the number of iterations. Must be positive.
	MaxIterations int

	// MaxDuration caps the wall-clock time of a single search. Must be
	// positive.
	MaxDuration time.Duration

	// NeighborStrategy selects the move generator.
	NeighborStrategy Strategy

	// RandomSeed seeds the move and acceptance draws. Zero picks a
	// time-based seed; the effective value is reported on the result.
	RandomSeed int64

	// ClosedTour includes the return leg from the last stop back to the
	// depot in the route cost.
	ClosedTour bool

	// Restarts is the number of independent searches to run. The best
	// result wins. Must be at least 1.
	Restarts int

	// InitialRoute, when set, is the route the search starts from instead
	// of the stop-set order. It must be a depot-anchored permutation of the
	// stop indices.
	InitialRoute routing.Route
}

// DefaultConfig returns the parameters used when a request does not override
// them.
func DefaultConfig() Config {
	return Config{
		InitialTemperature: 1000,
		CoolingRate:        0.995,
		MinTemperature:     1,
		MaxIterations:      5000,
		MaxDuration:        30 * time.Second,
		NeighborStrategy:   StrategySwap,
		ClosedTour:         true,
		Restarts:           1,
	}
}

// Validate checks every parameter and returns a ConfigError naming the first
// violation. InitialRoute is validated by New, which knows the stop count.
func (c Config) Validate() error {
	if math.IsNaN(c.InitialTemperature) || c.InitialTemperature <= 0 {
		return routing.NewConfigErrorf("initialTemperature", "must be positive, got %v", c.InitialTemperature)
	}
	if math.IsNaN(c.CoolingRate) || c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		return routing.NewConfigErrorf("coolingRate", "must be in (0, 1), got %v", c.CoolingRate)
	}
	if math.IsNaN(c.MinTemperature) || c.MinTemperature < 0 {
		return routing.NewConfigErrorf("minTemperature", "must not be negative, got %v", c.MinTemperature)
	}
	if c.MaxIterations <= 0 {
		return routing.NewConfigErrorf("maxIterations", "must be positive, got %d", c.MaxIterations)
	}
	if c.MaxDuration <= 0 {
		return routing.NewConfigError("maxDurationMs", "must be positive")
	}
	if _, err := ParseStrategy(string(c.NeighborStrategy)); err != nil {
		return err
	}
	if c.Restarts < 1 {
		return routing.NewConfigErrorf("restarts", "must be at least 1, got %d", c.Restarts)
	}
	return nil
}
