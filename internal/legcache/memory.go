package legcache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the fallback entry limit for the in-memory cache.
// One entry costs a few dozen bytes, so a million legs stays modest.
const DefaultCapacity = 1 << 20

type legKey struct {
	from, to int64
}

type memEntry struct {
	key  legKey
	cost float64
}

// Memory is an LRU leg cache bounded by entry count. It needs no
// namespace: it lives and dies with the process and a single loaded graph.
type Memory struct {
	mu        sync.Mutex
	capacity  int
	items     map[legKey]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates an in-memory LRU cache holding up to capacity legs.
// Non-positive capacities fall back to DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		capacity:  capacity,
		items:     make(map[legKey]*list.Element),
		evictList: list.New(),
	}
}

// GetMany implements Cache.
func (c *Memory) GetMany(_ context.Context, from int64, to []int64) (map[int64]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int64]float64, len(to))
	for _, dest := range to {
		ent, ok := c.items[legKey{from: from, to: dest}]
		if !ok {
			c.misses.Add(1)
			continue
		}
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		out[dest] = ent.Value.(*memEntry).cost
	}
	return out, nil
}

// PutMany implements Cache.
func (c *Memory) PutMany(_ context.Context, from int64, costs map[int64]float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for dest, cost := range costs {
		key := legKey{from: from, to: dest}
		if ent, ok := c.items[key]; ok {
			c.evictList.MoveToFront(ent)
			ent.Value.(*memEntry).cost = cost
			continue
		}
		c.items[key] = c.evictList.PushFront(&memEntry{key: key, cost: cost})
	}

	for c.evictList.Len() > c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*memEntry).key)
	}
	return nil
}

// Len returns the number of cached legs.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns cumulative hit and miss counts.
func (c *Memory) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close implements Cache.
func (c *Memory) Close() error {
	return nil
}
