// Package roadnet provides an in-process road network: a directed weighted
// graph loaded from JSON artifacts, with nearest-node snapping, Dijkstra
// shortest-path queries, and strongly-connected-component filtering. It
// implements the routing.GraphSource and routing.BatchGraphSource ports.
package roadnet

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
)

// Node is a road-network vertex.
type Node struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Arc is a directed, weighted road segment. Cost is in the unit the graph
// was built with (meters or seconds); the router never interprets it.
type Arc struct {
	From int64   `json:"from"`
	To   int64   `json:"to"`
	Cost float64 `json:"cost"`
}

// halfArc is the compact adjacency entry: dense head index plus weight.
type halfArc struct {
	to   int32
	cost float64
}

// Graph is an immutable directed road network. Node IDs are compacted to
// dense indices at construction. All queries are safe for concurrent use.
type Graph struct {
	nodes []Node          // dense index -> node
	index map[int64]int32 // node ID -> dense index
	out   [][]halfArc     // forward adjacency by dense index

	arcCount    int
	fingerprint string
	snapRadius  float64
	grid        *nodeGrid
}

// Option configures graph construction.
type Option func(*Graph)

// DefaultSnapRadiusMeters bounds how far a coordinate may be from its
// nearest node before snapping fails.
const DefaultSnapRadiusMeters = 1000.0

// WithSnapRadius sets the snap radius in meters.
func WithSnapRadius(meters float64) Option {
	return func(g *Graph) {
		if meters > 0 {
			g.snapRadius = meters
		}
	}
}

// New builds a graph from nodes and arcs. It validates that node IDs are
// unique, coordinates are in range, arc endpoints resolve, and costs are
// finite and non-negative.
func New(nodes []Node, arcs []Arc, opts ...Option) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("roadnet: graph has no nodes")
	}

	g := &Graph{
		nodes:      make([]Node, len(nodes)),
		index:      make(map[int64]int32, len(nodes)),
		out:        make([][]halfArc, len(nodes)),
		snapRadius: DefaultSnapRadiusMeters,
	}
	copy(g.nodes, nodes)

	for i, n := range g.nodes {
		if _, dup := g.index[n.ID]; dup {
			return nil, fmt.Errorf("roadnet: duplicate node ID %d", n.ID)
		}
		if math.IsNaN(n.Lat) || n.Lat < -90 || n.Lat > 90 {
			return nil, fmt.Errorf("roadnet: node %d latitude %v out of range", n.ID, n.Lat)
		}
		if math.IsNaN(n.Lon) || n.Lon < -180 || n.Lon > 180 {
			return nil, fmt.Errorf("roadnet: node %d longitude %v out of range", n.ID, n.Lon)
		}
		g.index[n.ID] = int32(i)
	}

	for _, a := range arcs {
		from, ok := g.index[a.From]
		if !ok {
			return nil, fmt.Errorf("roadnet: arc references unknown node %d", a.From)
		}
		to, ok := g.index[a.To]
		if !ok {
			return nil, fmt.Errorf("roadnet: arc references unknown node %d", a.To)
		}
		if math.IsNaN(a.Cost) || math.IsInf(a.Cost, 0) || a.Cost < 0 {
			return nil, fmt.Errorf("roadnet: arc %d->%d cost %v must be finite and non-negative", a.From, a.To, a.Cost)
		}
		g.out[from] = append(g.out[from], halfArc{to: to, cost: a.Cost})
		g.arcCount++
	}

	for _, opt := range opts {
		opt(g)
	}

	g.grid = buildGrid(g.nodes, g.snapRadius)
	g.fingerprint = computeFingerprint(g)
	return g, nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// ArcCount returns the number of directed arcs.
func (g *Graph) ArcCount() int {
	return g.arcCount
}

// SnapRadius returns the snap radius in meters.
func (g *Graph) SnapRadius() float64 {
	return g.snapRadius
}

// Fingerprint returns a stable hash of the graph content. Leg caches are
// namespaced by it so a republished graph never serves stale costs, and
// matrices record it to detect staleness after a reload.
func (g *Graph) Fingerprint() string {
	return g.fingerprint
}

// computeFingerprint hashes node and arc content in deterministic order.
func computeFingerprint(g *Graph) string {
	h := fnv.New64a()
	buf := make([]byte, 8)

	write64 := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		_, _ = h.Write(buf)
	}

	ids := make([]int64, 0, len(g.nodes))
	for id := range g.index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := g.nodes[g.index[id]]
		write64(uint64(id))
		write64(math.Float64bits(n.Lat))
		write64(math.Float64bits(n.Lon))
		for _, arc := range g.out[g.index[id]] {
			write64(uint64(g.nodes[arc.to].ID))
			write64(math.Float64bits(arc.cost))
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance between two coordinates in
// meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
