// Package matrix builds stop-to-stop travel cost matrices from a road
// network source. Builds snap every stop to its nearest road node, compute
// shortest-path costs one origin row per search, and assemble the result.
// A leg cache skips repeated searches across builds, worker and rate
// limits bound the load on the source, and an optional deterministic
// traffic adjustment perturbs leg costs.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/mat"

	"github.com/farlane/lastmile/internal/legcache"
	"github.com/farlane/lastmile/internal/logging"
	"github.com/farlane/lastmile/internal/routing"
)

// Provider builds distance matrices for stop sets. It is safe for
// concurrent use: all mutable state lives in per-call locals.
type Provider struct {
	source  routing.GraphSource
	cache   legcache.Cache
	logger  *logging.Logger
	workers int
	limiter *rate.Limiter

	traffic     bool
	trafficSeed int64

	graphTag string
}

// Option configures a Provider.
type Option func(*Provider)

// WithCache attaches a leg cache. A nil cache disables caching.
func WithCache(c legcache.Cache) Option {
	return func(p *Provider) {
		p.cache = c
	}
}

// WithWorkers bounds how many origin rows are computed concurrently.
func WithWorkers(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueryRate caps shortest-path searches per second against the source.
// Non-positive rates leave queries unlimited.
func WithQueryRate(perSecond float64) Option {
	return func(p *Provider) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithTraffic enables the deterministic traffic adjustment: each directed
// leg gets a multiplier in [1.0, 1.2) derived from the seed and the leg's
// node pair. Raw costs stay in the cache, so the adjustment never leaks
// into other builds.
func WithTraffic(seed int64) Option {
	return func(p *Provider) {
		p.traffic = true
		p.trafficSeed = seed
	}
}

// WithLogger sets the provider's logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// NewProvider creates a Provider over the given graph source.
func NewProvider(source routing.GraphSource, opts ...Option) *Provider {
	p := &Provider{
		source:  source,
		logger:  logging.New(logging.InfoLevel, os.Stderr),
		workers: runtime.GOMAXPROCS(0),
	}
	if tagged, ok := source.(interface{ Fingerprint() string }); ok {
		p.graphTag = tagged.Fingerprint()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build produces the full cost matrix for the stop set. It fails with
// routing.UnreachableStopError when a stop cannot be snapped and with
// routing.NoPathError when a snapped pair has no connecting path; no
// partial matrix is ever returned.
func (p *Provider) Build(ctx context.Context, stops *routing.StopSet) (*routing.DistanceMatrix, error) {
	start := time.Now()

	nodes, err := p.snapAll(ctx, stops)
	if err != nil {
		return nil, err
	}

	uniq := uniqueNodes(nodes)
	rows, err := p.legCosts(ctx, uniq, uniq)
	if err != nil {
		return nil, err
	}

	m, err := p.assemble(stops, nodes, nil, rows)
	if err != nil {
		return nil, err
	}

	p.logger.Info("distance matrix built", map[string]interface{}{
		"stops":       stops.Len(),
		"unique_legs": len(uniq) * (len(uniq) - 1),
		"elapsed_ms":  float64(time.Since(start).Microseconds()) / 1000.0,
	})
	return m, nil
}

// Extend grows an existing stop set and matrix by one delivery stop. The
// surviving block is copied from the old matrix and only the new row and
// column are computed, so extending is equivalent to a full rebuild with
// the same inputs.
func (p *Provider) Extend(ctx context.Context, stops *routing.StopSet, m *routing.DistanceMatrix, s routing.Stop) (*routing.StopSet, *routing.DistanceMatrix, error) {
	if m.Len() != stops.Len() {
		return nil, nil, routing.NewInputErrorf("stops",
			"matrix covers %d stops, set has %d", m.Len(), stops.Len())
	}
	if m.GraphTag() != p.graphTag {
		return nil, nil, routing.NewInputError("matrix",
			"matrix was built against a different road network")
	}

	extended, err := stops.Extend(s)
	if err != nil {
		return nil, nil, err
	}

	nodes, err := p.snapAll(ctx, extended)
	if err != nil {
		return nil, nil, err
	}

	// The new stop's outgoing row plus every older node's leg to it.
	last := nodes[len(nodes)-1]
	old := uniqueNodes(nodes[:len(nodes)-1])
	rows, err := p.legCosts(ctx, []int64{last}, old)
	if err != nil {
		return nil, nil, err
	}
	cols, err := p.legCosts(ctx, old, []int64{last})
	if err != nil {
		return nil, nil, err
	}
	for origin, legs := range cols {
		if rows[origin] == nil {
			rows[origin] = legs
			continue
		}
		for to, c := range legs {
			rows[origin][to] = c
		}
	}

	grown, err := p.assemble(extended, nodes, m, rows)
	if err != nil {
		return nil, nil, err
	}
	return extended, grown, nil
}

// snapAll resolves each stop to its nearest road node, in stop order, so
// the first failing stop is always the one reported.
func (p *Provider) snapAll(ctx context.Context, stops *routing.StopSet) ([]int64, error) {
	nodes := make([]int64, stops.Len())
	for i := 0; i < stops.Len(); i++ {
		s := stops.At(i)
		node, err := p.source.NearestNode(ctx, s.Lat, s.Lon)
		if err != nil {
			if errors.Is(err, routing.ErrNoNearbyNode) {
				return nil, &routing.UnreachableStopError{
					StopID: s.ID,
					Lat:    s.Lat,
					Lon:    s.Lon,
					Err:    err,
				}
			}
			return nil, fmt.Errorf("snapping stop %q: %w", s.ID, err)
		}
		nodes[i] = node
	}
	return nodes, nil
}

// legCosts returns raw shortest-path costs from every origin to every
// target, consulting the cache first and computing only the misses. The
// returned maps use +Inf for unreachable legs.
func (p *Provider) legCosts(ctx context.Context, origins, targets []int64) (map[int64]map[int64]float64, error) {
	results := make([]map[int64]float64, len(origins))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, origin := range origins {
		g.Go(func() error {
			row, err := p.originRow(gctx, origin, targets)
			if err != nil {
				return err
			}
			results[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int64]map[int64]float64, len(origins))
	for i, origin := range origins {
		out[origin] = results[i]
	}
	return out, nil
}

// originRow computes costs from one origin to the given targets.
func (p *Provider) originRow(ctx context.Context, origin int64, targets []int64) (map[int64]float64, error) {
	wanted := make([]int64, 0, len(targets))
	for _, t := range targets {
		if t != origin {
			wanted = append(wanted, t)
		}
	}

	row := make(map[int64]float64, len(wanted)+1)
	row[origin] = 0

	if len(wanted) == 0 {
		return row, nil
	}

	missing := wanted
	if p.cache != nil {
		cached, err := p.cache.GetMany(ctx, origin, wanted)
		if err != nil {
			// A cache outage degrades to recomputation, never to failure.
			p.logger.WithError(err).Warn("leg cache read failed", map[string]interface{}{
				"origin": origin,
			})
			cached = nil
		}
		missing = make([]int64, 0, len(wanted))
		for _, t := range wanted {
			if c, ok := cached[t]; ok {
				row[t] = c
			} else {
				missing = append(missing, t)
			}
		}
	}

	if len(missing) == 0 {
		return row, nil
	}

	computed, err := p.queryCosts(ctx, origin, missing)
	if err != nil {
		return nil, err
	}

	fresh := make(map[int64]float64, len(missing))
	for i, t := range missing {
		row[t] = computed[i]
		if !math.IsInf(computed[i], 1) {
			fresh[t] = computed[i]
		}
	}

	if p.cache != nil && len(fresh) > 0 {
		if err := p.cache.PutMany(ctx, origin, fresh); err != nil {
			p.logger.WithError(err).Warn("leg cache write failed", map[string]interface{}{
				"origin": origin,
			})
		}
	}
	return row, nil
}

// queryCosts runs the shortest-path searches for one origin, using a
// single one-to-many search when the source supports it.
func (p *Provider) queryCosts(ctx context.Context, origin int64, targets []int64) ([]float64, error) {
	if batch, ok := p.source.(routing.BatchGraphSource); ok {
		if err := p.waitQuery(ctx); err != nil {
			return nil, err
		}
		costs, err := batch.PathCosts(ctx, origin, targets)
		if err != nil {
			return nil, fmt.Errorf("path costs from node %d: %w", origin, err)
		}
		return costs, nil
	}

	costs := make([]float64, len(targets))
	for i, t := range targets {
		if err := p.waitQuery(ctx); err != nil {
			return nil, err
		}
		c, err := p.source.PathCost(ctx, origin, t)
		switch {
		case errors.Is(err, routing.ErrNoPath):
			c = math.Inf(1)
		case err != nil:
			return nil, fmt.Errorf("path cost %d->%d: %w", origin, t, err)
		}
		costs[i] = c
	}
	return costs, nil
}

func (p *Provider) waitQuery(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// assemble turns per-node leg costs into a stop-indexed matrix. When prev
// is non-nil its entries are copied for the stops it covers and rows is
// only consulted for the remainder.
func (p *Provider) assemble(stops *routing.StopSet, nodes []int64, prev *routing.DistanceMatrix, rows map[int64]map[int64]float64) (*routing.DistanceMatrix, error) {
	n := stops.Len()
	kept := 0
	if prev != nil {
		kept = prev.Len()
	}

	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if i < kept && j < kept {
				dense.Set(i, j, prev.Cost(i, j))
				continue
			}
			if nodes[i] == nodes[j] {
				continue
			}

			cost, ok := rows[nodes[i]][nodes[j]]
			if !ok || math.IsInf(cost, 1) {
				return nil, &routing.NoPathError{
					FromStopID: stops.At(i).ID,
					ToStopID:   stops.At(j).ID,
					FromNode:   nodes[i],
					ToNode:     nodes[j],
				}
			}
			if p.traffic {
				cost *= trafficFactor(p.trafficSeed, nodes[i], nodes[j])
			}
			dense.Set(i, j, cost)
		}
	}

	return routing.NewDistanceMatrix(dense, p.graphTag)
}

// uniqueNodes returns the distinct node IDs in first-seen order.
func uniqueNodes(nodes []int64) []int64 {
	seen := make(map[int64]struct{}, len(nodes))
	uniq := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	return uniq
}
