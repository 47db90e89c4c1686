package anneal

import "time"

// effectiveSeed resolves the configured seed. Zero means "not set" and
// draws a time-based seed; the chosen value is reported on the result so
// any run can be reproduced afterwards.
func effectiveSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

// deriveSeed mixes a parent seed and a restart index into an independent
// stream seed using the SplitMix64 finalizer, so parallel restarts explore
// uncorrelated move sequences while staying reproducible.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	seed := int64(x)
	if seed == 0 {
		// Zero would read as "not set" downstream and break reproducibility.
		seed = 1
	}
	return seed
}
