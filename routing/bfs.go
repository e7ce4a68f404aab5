package routing

import (
	"smiroute/topology"
)

// shortestPathTree runs a breadth-first search from source. Neighbours are
// expanded in ascending channel order, so the first parent found for a node
// is the same on every run. dist is -1 for unreachable nodes.
func shortestPathTree(g *topology.Graph, source int) (parent []int, dist []int) {
	n := g.NodeCount()
	parent = make([]int, n)
	dist = make([]int, n)
	for i := 0; i < n; i++ {
		parent[i] = -1
		dist[i] = -1
	}
	dist[source] = 0

	queue := make([]int, 0, n)
	queue = append(queue, source)
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		g.VisitNeighbors(u, func(v int) {
			if dist[v] >= 0 {
				return
			}
			dist[v] = dist[u] + 1
			parent[v] = u
			queue = append(queue, v)
		})
	}
	return parent, dist
}
