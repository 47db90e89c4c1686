package roadnet

import (
	"context"
	"math"

	"github.com/farlane/lastmile/internal/routing"
)

// metersPerDegreeLat is the approximate north-south span of one degree of
// latitude, used only to size grid cells; correctness comes from the final
// haversine check.
const metersPerDegreeLat = 111320.0

// nodeGrid is a uniform lat/lon grid over the graph's bounding box. Cells
// are sized to the snap radius so a ring search touches few cells.
type nodeGrid struct {
	minLat, minLon float64
	cellDeg        float64
	rows, cols     int
	cells          map[int][]int32

	// minCellMeters is a lower bound on the ground span of one cell,
	// conservative at the bounding box's extreme latitude. Ring r can only
	// contain nodes at least (r-1)*minCellMeters away.
	minCellMeters float64
}

func buildGrid(nodes []Node, snapRadius float64) *nodeGrid {
	minLat, minLon := math.Inf(1), math.Inf(1)
	maxLat, maxLon := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minLat = math.Min(minLat, n.Lat)
		maxLat = math.Max(maxLat, n.Lat)
		minLon = math.Min(minLon, n.Lon)
		maxLon = math.Max(maxLon, n.Lon)
	}

	cellDeg := snapRadius / metersPerDegreeLat
	if cellDeg <= 0 {
		cellDeg = 1e-3
	}

	g := &nodeGrid{
		minLat:  minLat,
		minLon:  minLon,
		cellDeg: cellDeg,
		rows:    int((maxLat-minLat)/cellDeg) + 1,
		cols:    int((maxLon-minLon)/cellDeg) + 1,
		cells:   make(map[int][]int32),
	}

	extremeLat := math.Max(math.Abs(minLat), math.Abs(maxLat))
	cosExtreme := math.Cos(extremeLat * math.Pi / 180)
	if cosExtreme < 0.01 {
		cosExtreme = 0.01
	}
	g.minCellMeters = cellDeg * metersPerDegreeLat * cosExtreme

	for i, n := range nodes {
		key := g.cellKey(g.cellOf(n.Lat, n.Lon))
		g.cells[key] = append(g.cells[key], int32(i))
	}
	return g
}

func (g *nodeGrid) cellOf(lat, lon float64) (row, col int) {
	row = int(math.Floor((lat - g.minLat) / g.cellDeg))
	col = int(math.Floor((lon - g.minLon) / g.cellDeg))
	return row, col
}

func (g *nodeGrid) cellKey(row, col int) int {
	return row*g.cols + col
}

// NearestNode returns the ID of the node closest to the coordinate, or
// routing.ErrNoNearbyNode when none lies within the snap radius. The grid is
// scanned in expanding rings around the query cell; the search stops once no
// farther ring can beat the best candidate.
func (g *Graph) NearestNode(ctx context.Context, lat, lon float64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	best := int32(-1)
	bestDist := math.Inf(1)
	row, col := g.grid.cellOf(lat, lon)

	maxRing := int(g.snapRadius/g.grid.minCellMeters) + 1
	for ring := 0; ring <= maxRing; ring++ {
		if best >= 0 && float64(ring-1)*g.grid.minCellMeters > bestDist {
			break
		}
		for _, key := range g.grid.ringKeys(row, col, ring) {
			for _, idx := range g.grid.cells[key] {
				n := g.nodes[idx]
				d := Haversine(lat, lon, n.Lat, n.Lon)
				if d < bestDist {
					best = idx
					bestDist = d
				}
			}
		}
	}

	if best < 0 || bestDist > g.snapRadius {
		return 0, routing.ErrNoNearbyNode
	}
	return g.nodes[best].ID, nil
}

// ringKeys returns the cell keys on the square ring at the given radius,
// clipped to the grid bounds. Ring 0 is the center cell itself.
func (g *nodeGrid) ringKeys(row, col, ring int) []int {
	if ring == 0 {
		if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
			return nil
		}
		return []int{g.cellKey(row, col)}
	}

	keys := make([]int, 0, 8*ring)
	appendCell := func(r, c int) {
		if r >= 0 && r < g.rows && c >= 0 && c < g.cols {
			keys = append(keys, g.cellKey(r, c))
		}
	}

	for c := col - ring; c <= col+ring; c++ {
		appendCell(row-ring, c)
		appendCell(row+ring, c)
	}
	for r := row - ring + 1; r <= row+ring-1; r++ {
		appendCell(r, col-ring)
		appendCell(r, col+ring)
	}
	return keys
}
