package matrix

// trafficSpread is the width of the traffic multiplier range [1.0, 1.2).
const trafficSpread = 0.2

// trafficFactor derives the traffic multiplier for one directed leg. The
// same seed and node pair always yield the same factor, so rebuilds and
// extensions agree, and the two directions of a leg get independent draws.
func trafficFactor(seed, from, to int64) float64 {
	h := mix64(uint64(seed))
	h = mix64(h ^ uint64(from))
	h = mix64(h ^ uint64(to))

	// Top 53 bits to a uniform float in [0, 1).
	u := float64(h>>11) / float64(1<<53)
	return 1.0 + trafficSpread*u
}

// mix64 is the SplitMix64 finalizer, a cheap avalanche over 64 bits.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
