package anneal

import (
	"math/rand"

	"github.com/farlane/lastmile/internal/routing"
)

// Neighbor moves mutate a candidate route in place. Position 0 is the depot
// and never moves, so positions are drawn from [1, len(route)). All draws go
// through the one rng in a fixed order, which keeps runs with the same seed
// replayable.

// applyMove applies one neighbor proposal to route. The mixed strategy
// consumes one extra draw to pick between swap and segment reversal.
func applyMove(strategy Strategy, route routing.Route, rng *rand.Rand) {
	if strategy == StrategyMixed {
		if rng.Intn(2) == 0 {
			strategy = StrategySwap
		} else {
			strategy = StrategySegmentReverse
		}
	}
	if strategy == StrategySegmentReverse {
		reverseMove(route, rng)
		return
	}
	swapMove(route, rng)
}

// swapMove exchanges two distinct delivery positions.
func swapMove(route routing.Route, rng *rand.Rand) {
	i, j := drawPositions(len(route), rng)
	route[i], route[j] = route[j], route[i]
}

// reverseMove reverses the segment between two distinct delivery positions,
// inclusive on both ends.
func reverseMove(route routing.Route, rng *rand.Rand) {
	i, j := drawPositions(len(route), rng)
	if i > j {
		i, j = j, i
	}
	for i < j {
		route[i], route[j] = route[j], route[i]
		i++
		j--
	}
}

// drawPositions returns two distinct delivery positions. Callers guarantee
// n >= 3, so the rejection loop terminates.
func drawPositions(n int, rng *rand.Rand) (int, int) {
	i := 1 + rng.Intn(n-1)
	j := 1 + rng.Intn(n-1)
	for j == i {
		j = 1 + rng.Intn(n-1)
	}
	return i, j
}
