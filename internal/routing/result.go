package routing

// TracePoint is one convergence sample: the best cost seen by the search up
// to the given iteration. A well-formed trace is therefore non-increasing in
// Cost.
type TracePoint struct {
	Iteration int     `json:"iteration"`
	Cost      float64 `json:"cost"`
}

// RouteResult is the immutable outcome of one optimization run. It carries
// no wall-clock fields so that two runs with the same seed marshal to
// byte-identical JSON; elapsed time is logged by the optimizer instead.
type RouteResult struct {
	// Route is the best visiting order found, as stop indices.
	Route Route `json:"route"`
	// StopIDs is the same order as stop identifiers, with the depot repeated
	// at the end when the tour is closed.
	StopIDs []string `json:"stop_ids"`
	// Cost is the total travel cost of Route.
	Cost float64 `json:"cost"`
	// InitialCost is the cost of the route the search started from.
	InitialCost float64 `json:"initial_cost"`
	// ImprovementPct is the relative improvement over the initial route.
	ImprovementPct float64 `json:"improvement_pct"`
	// Iterations is the number of annealing iterations performed.
	Iterations int `json:"iterations"`
	// Converged reports whether the temperature reached its floor, as
	// opposed to stopping on the iteration or wall-clock budget.
	Converged bool `json:"converged"`
	// Seed is the effective random seed, reported so nondeterministic runs
	// (seed 0) can still be reproduced afterwards.
	Seed int64 `json:"seed"`
	// ClosedTour records whether Cost includes the return-to-depot leg.
	ClosedTour bool `json:"closed_tour"`
	// Trace is the convergence history.
	Trace []TracePoint `json:"trace"`
}

// StopIDsForRoute renders a route as stop identifiers, appending the depot
// when the tour is closed.
func StopIDsForRoute(stops *StopSet, route Route, closed bool) []string {
	ids := make([]string, 0, len(route)+1)
	for _, idx := range route {
		ids = append(ids, stops.At(idx).ID)
	}
	if closed && len(route) > 0 {
		ids = append(ids, stops.At(route[0]).ID)
	}
	return ids
}

// ImprovementPct returns the relative cost improvement as a percentage.
// A zero initial cost yields 0 rather than a division by zero.
func ImprovementPct(initial, best float64) float64 {
	if initial == 0 {
		return 0
	}
	return (initial - best) / initial * 100
}
