package routing

import (
	"context"
)

// Optimizer defines the interface for route search algorithms
type Optimizer interface {
	// Optimize runs the search to completion and returns the best result
	Optimize(ctx context.Context) (*RouteResult, error)

	// Best returns the best route and cost found so far
	Best() (Route, float64)

	// Trace returns the convergence samples recorded so far
	Trace() []TracePoint

	// Stop gracefully stops the search
	Stop()
}

// GraphSource resolves coordinates to road-network nodes and answers
// shortest-path cost queries. Implementations must be safe for concurrent
// use; the matrix provider issues queries from multiple goroutines.
type GraphSource interface {
	// NearestNode returns the ID of the graph node closest to the
	// coordinate, or ErrNoNearbyNode when none lies within the source's
	// snap radius.
	NearestNode(ctx context.Context, lat, lon float64) (int64, error)

	// PathCost returns the shortest-path travel cost between two nodes, or
	// ErrNoPath when the destination is unreachable.
	PathCost(ctx context.Context, from, to int64) (float64, error)
}

// BatchGraphSource is an optional extension of GraphSource that answers
// one-to-many queries with a single search. The matrix provider upgrades to
// it by type assertion when the source supports it.
type BatchGraphSource interface {
	GraphSource

	// PathCosts returns the shortest-path cost from one origin to each
	// target, in target order. Unreachable targets report +Inf rather than
	// an error, so one bad pair does not hide the costs of the others.
	PathCosts(ctx context.Context, from int64, to []int64) ([]float64, error)
}
