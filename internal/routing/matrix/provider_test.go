package matrix

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farlane/lastmile/internal/legcache"
	"github.com/farlane/lastmile/internal/routing"
)

// fakeSource is a deterministic GraphSource. Leg costs follow a formula
// asymmetric in direction, with per-pair overrides for unreachable legs.
type fakeSource struct {
	mu        sync.Mutex
	snaps     map[[2]float64]int64
	overrides map[[2]int64]float64
	tag       string

	snapCalls  int
	pathCalls  int
	batchCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snaps: map[[2]float64]int64{
			{0, 0}: 100,
			{1, 1}: 200,
			{2, 2}: 300,
			{3, 3}: 400,
			{4, 4}: 500,
		},
		overrides: map[[2]int64]float64{},
		tag:       "fake-v1",
	}
}

func (s *fakeSource) Fingerprint() string { return s.tag }

func (s *fakeSource) NearestNode(ctx context.Context, lat, lon float64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.snapCalls++
	s.mu.Unlock()

	if node, ok := s.snaps[[2]float64{lat, lon}]; ok {
		return node, nil
	}
	return 0, routing.ErrNoNearbyNode
}

func (s *fakeSource) legCost(from, to int64) float64 {
	if c, ok := s.overrides[[2]int64{from, to}]; ok {
		return c
	}
	if from == to {
		return 0
	}
	if d := to - from; d > 0 {
		return float64(10 * d)
	}
	return float64(10*(from-to)) + 1
}

func (s *fakeSource) PathCost(ctx context.Context, from, to int64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.pathCalls++
	s.mu.Unlock()

	c := s.legCost(from, to)
	if math.IsInf(c, 1) {
		return 0, routing.ErrNoPath
	}
	return c, nil
}

// fakeBatchSource upgrades fakeSource with one-to-many queries.
type fakeBatchSource struct {
	*fakeSource
}

func (s *fakeBatchSource) PathCosts(ctx context.Context, from int64, to []int64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.batchCalls++
	s.mu.Unlock()

	out := make([]float64, len(to))
	for i, t := range to {
		out[i] = s.legCost(from, t)
	}
	return out, nil
}

func (s *fakeSource) calls() (snap, path, batch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapCalls, s.pathCalls, s.batchCalls
}

func fourStops(t *testing.T) *routing.StopSet {
	t.Helper()
	ss, err := routing.NewStopSet([]routing.Stop{
		{ID: "depot", Lat: 0, Lon: 0, Role: routing.RoleDepot},
		{ID: "a", Lat: 1, Lon: 1, Role: routing.RoleDelivery},
		{ID: "b", Lat: 2, Lon: 2, Role: routing.RoleDelivery},
		{ID: "c", Lat: 3, Lon: 3, Role: routing.RoleDelivery},
	})
	require.NoError(t, err)
	return ss
}

func TestBuildMatrix(t *testing.T) {
	src := &fakeBatchSource{newFakeSource()}
	p := NewProvider(src)

	m, err := p.Build(context.Background(), fourStops(t))
	require.NoError(t, err)

	assert.Equal(t, 4, m.Len())
	assert.Equal(t, "fake-v1", m.GraphTag())

	// Nodes are 100..400; the formula gives 10 per node-ID step, +1 when
	// traveling against increasing IDs.
	assert.Equal(t, 1000.0, m.Cost(0, 1))
	assert.Equal(t, 1001.0, m.Cost(1, 0))
	assert.Equal(t, 3000.0, m.Cost(0, 3))
	assert.Equal(t, 2001.0, m.Cost(3, 1))
	assert.Zero(t, m.Cost(2, 2))
}

func TestBuildIsRepeatable(t *testing.T) {
	src := &fakeBatchSource{newFakeSource()}
	p := NewProvider(src)
	ctx := context.Background()

	m1, err := p.Build(ctx, fourStops(t))
	require.NoError(t, err)
	m2, err := p.Build(ctx, fourStops(t))
	require.NoError(t, err)

	assert.True(t, m1.Equal(m2), "same stops against the same graph must build the same matrix")
}

func TestBuildPerPairFallback(t *testing.T) {
	batch := &fakeBatchSource{newFakeSource()}
	plain := newFakeSource()
	ctx := context.Background()

	mBatch, err := NewProvider(batch).Build(ctx, fourStops(t))
	require.NoError(t, err)
	mPlain, err := NewProvider(plain).Build(ctx, fourStops(t))
	require.NoError(t, err)

	assert.True(t, mBatch.Equal(mPlain))

	_, path, batchCalls := batch.calls()
	assert.Zero(t, path, "batch source must not fall back to single queries")
	assert.Equal(t, 4, batchCalls, "one search per origin node")

	_, path, batchCalls = plain.calls()
	assert.Equal(t, 4*3, path, "one query per directed pair")
	assert.Zero(t, batchCalls)
}

func TestBuildUsesCache(t *testing.T) {
	src := &fakeBatchSource{newFakeSource()}
	p := NewProvider(src, WithCache(legcache.NewMemory(0)))
	ctx := context.Background()

	m1, err := p.Build(ctx, fourStops(t))
	require.NoError(t, err)
	_, _, afterFirst := src.calls()

	m2, err := p.Build(ctx, fourStops(t))
	require.NoError(t, err)
	_, _, afterSecond := src.calls()

	assert.True(t, m1.Equal(m2))
	assert.Equal(t, 4, afterFirst)
	assert.Equal(t, afterFirst, afterSecond, "second build must be served from the cache")
}

func TestBuildUnreachableStop(t *testing.T) {
	src := &fakeBatchSource{newFakeSource()}
	p := NewProvider(src)

	stops, err := routing.NewStopSet([]routing.Stop{
		{ID: "depot", Lat: 0, Lon: 0, Role: routing.RoleDepot},
		{ID: "a", Lat: 1, Lon: 1, Role: routing.RoleDelivery},
		{ID: "island", Lat: 9, Lon: 9, Role: routing.RoleDelivery},
		{ID: "alsoBad", Lat: 8, Lon: 8, Role: routing.RoleDelivery},
	})
	require.NoError(t, err)

	m, err := p.Build(context.Background(), stops)
	assert.Nil(t, m)

	ue, ok := routing.AsUnreachableStopError(err)
	require.True(t, ok, "want UnreachableStopError, got %v", err)
	assert.Equal(t, "island", ue.StopID, "the first unsnappable stop in order is reported")
	assert.ErrorIs(t, err, routing.ErrNoNearbyNode)
}

func TestBuildNoPath(t *testing.T) {
	src := &fakeBatchSource{newFakeSource()}
	src.overrides[[2]int64{200, 300}] = math.Inf(1)
	p := NewProvider(src)

	m, err := p.Build(context.Background(), fourStops(t))
	assert.Nil(t, m, "no partial matrix on failure")

	np, ok := routing.AsNoPathError(err)
	require.True(t, ok, "want NoPathError, got %v", err)
	assert.Equal(t, "a", np.FromStopID)
	assert.Equal(t, "b", np.ToStopID)
	assert.Equal(t, int64(200), np.FromNode)
	assert.Equal(t, int64(300), np.ToNode)
}

func TestBuildCancelledContext(t *testing.T) {
	src := &fakeBatchSource{newFakeSource()}
	p := NewProvider(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Build(ctx, fourStops(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtendMatchesRebuild(t *testing.T) {
	added := routing.Stop{ID: "d", Lat: 4, Lon: 4, Role: routing.RoleDelivery}

	tests := []struct {
		name string
		opts []Option
	}{
		{name: "plain"},
		{name: "with traffic", opts: []Option{WithTraffic(42)}},
		{name: "with cache", opts: []Option{WithCache(legcache.NewMemory(0))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeBatchSource{newFakeSource()}
			p := NewProvider(src, tt.opts...)
			ctx := context.Background()

			stops := fourStops(t)
			m, err := p.Build(ctx, stops)
			require.NoError(t, err)

			grownStops, grown, err := p.Extend(ctx, stops, m, added)
			require.NoError(t, err)
			assert.Equal(t, 5, grownStops.Len())
			assert.Equal(t, 5, grown.Len())

			fullStops, err := stops.Extend(added)
			require.NoError(t, err)
			full, err := NewProvider(&fakeBatchSource{newFakeSource()}, tt.opts...).Build(ctx, fullStops)
			require.NoError(t, err)

			assert.True(t, grown.Equal(full), "extending must equal a full rebuild")
		})
	}
}

func TestExtendRejectsStaleMatrix(t *testing.T) {
	srcA := &fakeBatchSource{newFakeSource()}
	stops := fourStops(t)
	m, err := NewProvider(srcA).Build(context.Background(), stops)
	require.NoError(t, err)

	srcB := &fakeBatchSource{newFakeSource()}
	srcB.tag = "fake-v2"

	added := routing.Stop{ID: "d", Lat: 4, Lon: 4, Role: routing.RoleDelivery}
	_, _, err = NewProvider(srcB).Extend(context.Background(), stops, m, added)

	ie, ok := routing.AsInputError(err)
	require.True(t, ok, "want InputError, got %v", err)
	assert.Equal(t, "matrix", ie.Field)
}

func TestTrafficIsDeterministic(t *testing.T) {
	ctx := context.Background()
	stops := fourStops(t)

	build := func(opts ...Option) *routing.DistanceMatrix {
		m, err := NewProvider(&fakeBatchSource{newFakeSource()}, opts...).Build(ctx, stops)
		require.NoError(t, err)
		return m
	}

	raw := build()
	a := build(WithTraffic(7))
	b := build(WithTraffic(7))
	c := build(WithTraffic(8))

	assert.True(t, a.Equal(b), "same seed, same factors")
	assert.False(t, a.Equal(c), "different seeds diverge")

	for i := 0; i < raw.Len(); i++ {
		for j := 0; j < raw.Len(); j++ {
			if i == j {
				continue
			}
			assert.GreaterOrEqual(t, a.Cost(i, j), raw.Cost(i, j))
			assert.Less(t, a.Cost(i, j), raw.Cost(i, j)*(1.0+trafficSpread))
		}
	}
}

func TestTrafficKeepsCacheRaw(t *testing.T) {
	src := &fakeBatchSource{newFakeSource()}
	shared := legcache.NewMemory(0)
	ctx := context.Background()
	stops := fourStops(t)

	_, err := NewProvider(src, WithCache(shared), WithTraffic(7)).Build(ctx, stops)
	require.NoError(t, err)

	// A plain build over the now-warm cache must see raw costs.
	cached, err := NewProvider(src, WithCache(shared)).Build(ctx, stops)
	require.NoError(t, err)
	fresh, err := NewProvider(&fakeBatchSource{newFakeSource()}).Build(ctx, stops)
	require.NoError(t, err)

	assert.True(t, cached.Equal(fresh), "cache must store unadjusted leg costs")
}

func TestTrafficFactorRange(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		for from := int64(1); from < 20; from++ {
			for to := int64(1); to < 20; to++ {
				f := trafficFactor(seed, from, to)
				assert.GreaterOrEqual(t, f, 1.0)
				assert.Less(t, f, 1.0+trafficSpread)
			}
		}
	}

	assert.Equal(t, trafficFactor(1, 2, 3), trafficFactor(1, 2, 3))
	assert.NotEqual(t, trafficFactor(1, 2, 3), trafficFactor(1, 3, 2),
		"directions draw independent factors")
}
