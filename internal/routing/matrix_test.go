package routing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewDistanceMatrixRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		rows int
		cols int
		data []float64
	}{
		{
			name: "not square",
			rows: 2, cols: 3,
			data: []float64{0, 1, 2, 3, 0, 4},
		},
		{
			name: "single stop",
			rows: 1, cols: 1,
			data: []float64{0},
		},
		{
			name: "nonzero diagonal",
			rows: 2, cols: 2,
			data: []float64{0, 1, 2, 5},
		},
		{
			name: "negative cost",
			rows: 2, cols: 2,
			data: []float64{0, -1, 2, 0},
		},
		{
			name: "infinite cost",
			rows: 2, cols: 2,
			data: []float64{0, math.Inf(1), 2, 0},
		},
		{
			name: "NaN cost",
			rows: 2, cols: 2,
			data: []float64{0, math.NaN(), 2, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDistanceMatrix(mat.NewDense(tt.rows, tt.cols, tt.data), "g")
			assert.Error(t, err)
		})
	}
}

func TestDistanceMatrixAccessors(t *testing.T) {
	m, err := NewDistanceMatrix(mat.NewDense(2, 2, []float64{0, 1.5, 2.5, 0}), "fp-123")
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1.5, m.Cost(0, 1))
	assert.Equal(t, 2.5, m.Cost(1, 0))
	assert.Equal(t, "fp-123", m.GraphTag())
}

func TestDistanceMatrixEqual(t *testing.T) {
	a, err := NewDistanceMatrix(mat.NewDense(2, 2, []float64{0, 1, 2, 0}), "g")
	require.NoError(t, err)
	b, err := NewDistanceMatrix(mat.NewDense(2, 2, []float64{0, 1, 2, 0}), "g")
	require.NoError(t, err)
	c, err := NewDistanceMatrix(mat.NewDense(2, 2, []float64{0, 1, 3, 0}), "g")
	require.NoError(t, err)
	d, err := NewDistanceMatrix(mat.NewDense(2, 2, []float64{0, 1, 2, 0}), "other")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}
