package anneal

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farlane/lastmile/internal/routing"
)

func TestMovesPreservePermutation(t *testing.T) {
	moves := map[string]func(routing.Route, *rand.Rand){
		"swap":    swapMove,
		"reverse": reverseMove,
	}
	for name, move := range moves {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			route := routing.IdentityRoute(8)
			for k := 0; k < 200; k++ {
				move(route, rng)
				require.NoError(t, routing.ValidateRoute(route, 8))
				require.Equal(t, 0, route[0], "depot must stay in front")
			}
		})
	}
}

func TestApplyMoveMixed(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	route := routing.IdentityRoute(8)
	for k := 0; k < 200; k++ {
		applyMove(StrategyMixed, route, rng)
		require.NoError(t, routing.ValidateRoute(route, 8))
	}
}

func TestDrawPositionsSmallestRoute(t *testing.T) {
	// Three stops leave only positions 1 and 2 to draw from.
	rng := rand.New(rand.NewSource(3))
	for k := 0; k < 100; k++ {
		i, j := drawPositions(3, rng)
		assert.NotEqual(t, i, j)
		assert.Contains(t, []int{1, 2}, i)
		assert.Contains(t, []int{1, 2}, j)
	}
}
