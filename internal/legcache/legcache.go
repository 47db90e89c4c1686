// Package legcache caches shortest-path leg costs between road network
// nodes so repeated matrix builds over the same graph skip Dijkstra work.
// Entries are keyed per origin node, matching how the matrix provider
// computes costs one origin row at a time. Durable backends namespace
// entries by graph fingerprint so a republished network never serves
// stale costs.
package legcache

import "context"

// Cache stores leg costs from one origin node to many destination nodes.
// Implementations must be safe for concurrent use.
type Cache interface {
	// GetMany returns the cached costs from origin to each requested
	// destination. Legs not in the cache are simply absent from the map.
	GetMany(ctx context.Context, from int64, to []int64) (map[int64]float64, error)

	// PutMany stores the given costs from one origin node.
	PutMany(ctx context.Context, from int64, costs map[int64]float64) error

	// Close releases any resources held by the cache.
	Close() error
}
