package legcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a leg cache backed by Redis, shared across service instances.
// Keys carry the graph fingerprint namespace; values are float64 costs in
// their shortest round-trippable decimal form.
type Redis struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedis wraps an existing Redis client. The ttl bounds how long legs
// stay cached; zero means no expiry.
func NewRedis(client *redis.Client, namespace string, ttl time.Duration) *Redis {
	return &Redis{client: client, namespace: namespace, ttl: ttl}
}

func (c *Redis) key(from, to int64) string {
	return fmt.Sprintf("leg:%s:%d:%d", c.namespace, from, to)
}

// GetMany implements Cache using a single MGET round trip.
func (c *Redis) GetMany(ctx context.Context, from int64, to []int64) (map[int64]float64, error) {
	if len(to) == 0 {
		return map[int64]float64{}, nil
	}

	keys := make([]string, len(to))
	for i, dest := range to {
		keys[i] = c.key(from, dest)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("leg cache mget: %w", err)
	}

	out := make(map[int64]float64, len(to))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // nil reply, cache miss
		}
		cost, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("leg cache corrupt value for %s: %w", keys[i], err)
		}
		out[to[i]] = cost
	}
	return out, nil
}

// PutMany implements Cache using one pipelined batch of SETs.
func (c *Redis) PutMany(ctx context.Context, from int64, costs map[int64]float64) error {
	if len(costs) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for dest, cost := range costs {
		pipe.Set(ctx, c.key(from, dest), strconv.FormatFloat(cost, 'g', -1, 64), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leg cache pipeline set: %w", err)
	}
	return nil
}

// Close implements Cache.
func (c *Redis) Close() error {
	return c.client.Close()
}
