package roadnet

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/farlane/lastmile/internal/routing"
)

// pqItem is one frontier entry. Stale entries are skipped on pop instead of
// being re-keyed in place (lazy decrease-key).
type pqItem struct {
	node int32
	dist float64
}

type nodePQ []pqItem

func (pq nodePQ) Len() int            { return len(pq) }
func (pq nodePQ) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq nodePQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *nodePQ) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *nodePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ctxCheckInterval bounds how many heap pops happen between cancellation
// checks, keeping the hot loop cheap.
const ctxCheckInterval = 256

// PathCost returns the shortest-path travel cost from one node to another,
// or routing.ErrNoPath when the destination is unreachable.
func (g *Graph) PathCost(ctx context.Context, from, to int64) (float64, error) {
	costs, err := g.PathCosts(ctx, from, []int64{to})
	if err != nil {
		return 0, err
	}
	if math.IsInf(costs[0], 1) {
		return 0, routing.ErrNoPath
	}
	return costs[0], nil
}

// PathCosts runs a single Dijkstra search from the origin until every target
// is settled or the frontier empties, and returns the cost to each target in
// target order. Unreachable targets report +Inf. The search honors ctx at
// heap-pop boundaries.
func (g *Graph) PathCosts(ctx context.Context, from int64, to []int64) ([]float64, error) {
	src, ok := g.index[from]
	if !ok {
		return nil, fmt.Errorf("roadnet: unknown origin node %d", from)
	}

	want := make(map[int32]struct{}, len(to))
	for _, id := range to {
		idx, ok := g.index[id]
		if !ok {
			return nil, fmt.Errorf("roadnet: unknown target node %d", id)
		}
		want[idx] = struct{}{}
	}
	remaining := len(want)

	dist := make([]float64, len(g.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	settled := make([]bool, len(g.nodes))

	dist[src] = 0
	pq := &nodePQ{{node: src, dist: 0}}
	heap.Init(pq)

	for step := 0; pq.Len() > 0 && remaining > 0; step++ {
		if step&(ctxCheckInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		item := heap.Pop(pq).(pqItem)
		if settled[item.node] {
			continue // stale frontier entry
		}
		settled[item.node] = true

		if _, isTarget := want[item.node]; isTarget {
			remaining--
		}

		for _, arc := range g.out[item.node] {
			if settled[arc.to] {
				continue
			}
			if next := item.dist + arc.cost; next < dist[arc.to] {
				dist[arc.to] = next
				heap.Push(pq, pqItem{node: arc.to, dist: next})
			}
		}
	}

	out := make([]float64, len(to))
	for i, id := range to {
		out[i] = dist[g.index[id]]
	}
	return out, nil
}
