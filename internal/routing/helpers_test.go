package routing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// buildMatrix wraps a row-major cost table in a DistanceMatrix, failing the
// test on invariant violations.
func buildMatrix(t *testing.T, rows [][]float64) *DistanceMatrix {
	t.Helper()

	n := len(rows)
	data := make([]float64, 0, n*n)
	for _, row := range rows {
		require.Len(t, row, n, "cost table must be square")
		data = append(data, row...)
	}
	m, err := NewDistanceMatrix(mat.NewDense(n, n, data), "test-graph")
	require.NoError(t, err)
	return m
}

// squareStops returns the canonical unit-square fixture: a depot at the
// origin and three deliveries at the remaining corners.
func squareStops(t *testing.T) *StopSet {
	t.Helper()

	ss, err := NewStopSet([]Stop{
		{ID: "depot", Lat: 0, Lon: 0, Role: RoleDepot},
		{ID: "a", Lat: 0, Lon: 1, Role: RoleDelivery},
		{ID: "b", Lat: 1, Lon: 1, Role: RoleDelivery},
		{ID: "c", Lat: 1, Lon: 0, Role: RoleDelivery},
	})
	require.NoError(t, err)
	return ss
}
