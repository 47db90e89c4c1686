package routing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix holds pairwise travel costs between the stops of one
// StopSet. Entry (i, j) is the cost of traveling from stop i to stop j; the
// matrix may be asymmetric when the road network contains one-way streets.
// A DistanceMatrix is read-only after construction and safe for concurrent
// readers, so parallel restart workers share it without locking.
type DistanceMatrix struct {
	n        int
	costs    *mat.Dense
	graphTag string
}

// NewDistanceMatrix wraps a dense cost matrix after checking its invariants:
// square shape, zero diagonal, and finite non-negative entries. The graphTag
// records the fingerprint of the road network the costs were computed on.
func NewDistanceMatrix(costs *mat.Dense, graphTag string) (*DistanceMatrix, error) {
	r, c := costs.Dims()
	if r != c {
		return nil, fmt.Errorf("distance matrix must be square, got %dx%d", r, c)
	}
	if r < 2 {
		return nil, fmt.Errorf("distance matrix must cover at least 2 stops, got %d", r)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := costs.At(i, j)
			if i == j {
				if v != 0 {
					return nil, fmt.Errorf("distance matrix diagonal entry (%d,%d) must be 0, got %v", i, j, v)
				}
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("distance matrix entry (%d,%d) must be finite and non-negative, got %v", i, j, v)
			}
		}
	}
	return &DistanceMatrix{n: r, costs: costs, graphTag: graphTag}, nil
}

// Len returns the number of stops the matrix covers.
func (m *DistanceMatrix) Len() int {
	return m.n
}

// Cost returns the travel cost from stop i to stop j.
func (m *DistanceMatrix) Cost(i, j int) float64 {
	return m.costs.At(i, j)
}

// GraphTag returns the fingerprint of the road network the matrix was built
// against. Callers use it to detect stale matrices after a graph reload.
func (m *DistanceMatrix) GraphTag() string {
	return m.graphTag
}

// Equal reports whether two matrices have identical dimensions, entries, and
// graph tags.
func (m *DistanceMatrix) Equal(other *DistanceMatrix) bool {
	if m.n != other.n || m.graphTag != other.graphTag {
		return false
	}
	return mat.Equal(m.costs, other.costs)
}
