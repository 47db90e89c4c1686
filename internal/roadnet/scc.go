package roadnet

// LargestSCC returns the subgraph induced by the largest strongly connected
// component. Stops snapped to nodes outside that component would be
// unreachable from most of the network, so graphs are usually filtered once
// at load time. Arcs with either endpoint outside the component are dropped.
func (g *Graph) LargestSCC() *Graph {
	n := len(g.nodes)
	if n == 0 {
		return g
	}

	// Kosaraju, both passes iterative to survive large road extracts.
	order := make([]int32, 0, n)
	visited := make([]bool, n)

	type frame struct {
		node int32
		next int
	}
	stack := make([]frame, 0, 64)

	for start := int32(0); int(start) < n; start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		stack = append(stack, frame{node: start})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.out[top.node]) {
				next := g.out[top.node][top.next].to
				top.next++
				if !visited[next] {
					visited[next] = true
					stack = append(stack, frame{node: next})
				}
				continue
			}
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	in := make([][]int32, n)
	for from := int32(0); int(from) < n; from++ {
		for _, arc := range g.out[from] {
			in[arc.to] = append(in[arc.to], from)
		}
	}

	comp := make([]int32, n)
	for i := range comp {
		comp[i] = -1
	}
	var compSizes []int
	nodeStack := make([]int32, 0, 64)

	for i := n - 1; i >= 0; i-- {
		root := order[i]
		if comp[root] >= 0 {
			continue
		}
		id := int32(len(compSizes))
		compSizes = append(compSizes, 0)
		comp[root] = id
		nodeStack = append(nodeStack, root)
		for len(nodeStack) > 0 {
			node := nodeStack[len(nodeStack)-1]
			nodeStack = nodeStack[:len(nodeStack)-1]
			compSizes[id]++
			for _, from := range in[node] {
				if comp[from] < 0 {
					comp[from] = id
					nodeStack = append(nodeStack, from)
				}
			}
		}
	}

	largest := int32(0)
	for id, size := range compSizes {
		if size > compSizes[largest] {
			largest = int32(id)
		}
	}
	if compSizes[largest] == n {
		return g
	}

	nodes := make([]Node, 0, compSizes[largest])
	arcs := make([]Arc, 0, g.arcCount)
	for i := int32(0); int(i) < n; i++ {
		if comp[i] != largest {
			continue
		}
		nodes = append(nodes, g.nodes[i])
		for _, arc := range g.out[i] {
			if comp[arc.to] == largest {
				arcs = append(arcs, Arc{From: g.nodes[i].ID, To: g.nodes[arc.to].ID, Cost: arc.cost})
			}
		}
	}

	filtered, err := New(nodes, arcs, WithSnapRadius(g.snapRadius))
	if err != nil {
		// The inputs came from a validated graph; a failure here is a bug.
		panic(err)
	}
	return filtered
}
