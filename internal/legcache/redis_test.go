package legcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, namespace string, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedis(client, namespace, ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisRoundTrip(t *testing.T) {
	c, _ := newTestRedis(t, "graphA", 0)
	ctx := context.Background()

	require.NoError(t, c.PutMany(ctx, 1, map[int64]float64{
		2: 120.5,
		3: 0.0,
	}))

	got, err := c.GetMany(ctx, 1, []int64{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{2: 120.5, 3: 0.0}, got)
}

func TestRedisEmptyRequests(t *testing.T) {
	c, _ := newTestRedis(t, "graphA", 0)
	ctx := context.Background()

	got, err := c.GetMany(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.PutMany(ctx, 1, nil))
}

func TestRedisTTL(t *testing.T) {
	c, mr := newTestRedis(t, "graphA", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.PutMany(ctx, 1, map[int64]float64{2: 10.0}))

	got, err := c.GetMany(ctx, 1, []int64{2})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	mr.FastForward(2 * time.Minute)

	got, err = c.GetMany(ctx, 1, []int64{2})
	require.NoError(t, err)
	assert.Empty(t, got, "entry must expire after the TTL")
}

func TestRedisNamespaceIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := NewRedis(client, "graphA", 0)
	b := NewRedis(client, "graphB", 0)
	ctx := context.Background()

	require.NoError(t, a.PutMany(ctx, 1, map[int64]float64{2: 11.0}))

	got, err := b.GetMany(ctx, 1, []int64{2})
	require.NoError(t, err)
	assert.Empty(t, got, "a different graph fingerprint must not share legs")
}

func TestRedisCorruptValue(t *testing.T) {
	c, mr := newTestRedis(t, "graphA", 0)

	require.NoError(t, mr.Set("leg:graphA:1:2", "not-a-number"))

	_, err := c.GetMany(context.Background(), 1, []int64{2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt value")
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Open(context.Background(), Options{
		Kind:      KindRedis,
		Namespace: "graphA",
		RedisAddr: mr.Addr(),
	})
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.PutMany(ctx, 5, map[int64]float64{6: 1.5}))
	got, err := c.GetMany(ctx, 5, []int64{6})
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{6: 1.5}, got)
}

func TestOpenNoneAndUnknown(t *testing.T) {
	c, err := Open(context.Background(), Options{Kind: KindNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = Open(context.Background(), Options{Kind: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown leg cache kind")
}
