package routing

// Evaluator computes the total cost of a route against a distance matrix.
// It is a pure function object with no side effects. Legs are always read in
// travel order, so asymmetric matrices are handled correctly.
type Evaluator struct {
	closed bool
}

// NewEvaluator returns an evaluator. When closedTour is true the cost
// includes the final leg back from the last stop to the route start.
func NewEvaluator(closedTour bool) *Evaluator {
	return &Evaluator{closed: closedTour}
}

// ClosedTour reports whether the evaluator adds the return-to-start leg.
func (e *Evaluator) ClosedTour() bool {
	return e.closed
}

// Evaluate sums the travel cost of consecutive legs in O(len(route)).
func (e *Evaluator) Evaluate(route Route, m *DistanceMatrix) float64 {
	total := 0.0
	for k := 0; k+1 < len(route); k++ {
		total += m.Cost(route[k], route[k+1])
	}
	if e.closed && len(route) > 1 {
		total += m.Cost(route[len(route)-1], route[0])
	}
	return total
}
