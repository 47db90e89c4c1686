package anneal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveSeedPassesThrough(t *testing.T) {
	assert.Equal(t, int64(42), effectiveSeed(42))
	assert.Equal(t, int64(-5), effectiveSeed(-5))
}

func TestEffectiveSeedZeroDrawsNonZero(t *testing.T) {
	assert.NotZero(t, effectiveSeed(0))
}

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, deriveSeed(42, 3), deriveSeed(42, 3))
	assert.NotEqual(t, deriveSeed(42, 0), deriveSeed(42, 1))
	assert.NotEqual(t, deriveSeed(42, 0), deriveSeed(43, 0))
}

func TestDeriveSeedNeverZero(t *testing.T) {
	for _, parent := range []int64{-1, 0, 1, 42, 1 << 40} {
		for stream := uint64(0); stream < 1000; stream++ {
			assert.NotZero(t, deriveSeed(parent, stream))
		}
	}
}
