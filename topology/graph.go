package topology

import (
	"sort"
)

// EdgeKind tells a physical wire apart from a device-internal crossbar hop.
type EdgeKind int

const (
	NoEdge EdgeKind = iota
	Crossbar
	Physical
)

func (k EdgeKind) String() string {
	switch k {
	case Crossbar:
		return "crossbar"
	case Physical:
		return "physical"
	default:
		return "none"
	}
}

// linkSet is the mutable adjacency used while a topology is being assembled.
type linkSet struct {
	Links map[Channel]map[Channel]EdgeKind
}

func newLinkSet() *linkSet {
	return &linkSet{Links: make(map[Channel]map[Channel]EdgeKind)}
}

func (l *linkSet) addNode(c Channel) {
	if _, exists := l.Links[c]; !exists {
		l.Links[c] = make(map[Channel]EdgeKind)
	}
}

// addLink stores an undirected edge. Re-adding an edge is a no-op except that
// a physical wire upgrades a crossbar edge between the same pair.
func (l *linkSet) addLink(a, b Channel, kind EdgeKind) {
	l.addNode(a)
	l.addNode(b)
	if l.Links[a][b] < kind {
		l.Links[a][b] = kind
		l.Links[b][a] = kind
	}
}

type neighbor struct {
	to   int
	kind EdgeKind
}

// Graph is the frozen, undirected channel graph. Nodes are indexed in
// ascending channel order and every adjacency list is sorted the same way,
// so traversals are reproducible. A Graph is never mutated after freeze and
// is safe for concurrent use.
type Graph struct {
	nodes     []Channel
	index     map[Channel]int
	adjacency [][]neighbor
	edges     int
}

func (l *linkSet) freeze() *Graph {
	nodes := make([]Channel, 0, len(l.Links))
	for c := range l.Links {
		nodes = append(nodes, c)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Less(nodes[j]) })

	g := &Graph{
		nodes:     nodes,
		index:     make(map[Channel]int, len(nodes)),
		adjacency: make([][]neighbor, len(nodes)),
	}
	for i, c := range nodes {
		g.index[c] = i
	}
	for i, c := range nodes {
		targets := l.Links[c]
		adj := make([]neighbor, 0, len(targets))
		for target, kind := range targets {
			adj = append(adj, neighbor{to: g.index[target], kind: kind})
		}
		sort.Slice(adj, func(a, b int) bool { return adj[a].to < adj[b].to })
		g.adjacency[i] = adj
		g.edges += len(adj)
	}
	g.edges /= 2
	return g
}

// NodeCount returns the number of channels in the graph
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes returns every channel in ascending order
func (g *Graph) Nodes() []Channel {
	out := make([]Channel, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Contains reports whether c is a node of the graph
func (g *Graph) Contains(c Channel) bool {
	_, ok := g.index[c]
	return ok
}

// IndexOf returns the dense index of c
func (g *Graph) IndexOf(c Channel) (int, bool) {
	i, ok := g.index[c]
	return i, ok
}

// ChannelAt returns the channel with dense index i
func (g *Graph) ChannelAt(i int) Channel {
	return g.nodes[i]
}

// EdgeKind returns the kind of the edge between a and b, or NoEdge
func (g *Graph) EdgeKind(a, b Channel) EdgeKind {
	ia, ok := g.index[a]
	if !ok {
		return NoEdge
	}
	ib, ok := g.index[b]
	if !ok {
		return NoEdge
	}
	adj := g.adjacency[ia]
	pos := sort.Search(len(adj), func(i int) bool { return adj[i].to >= ib })
	if pos < len(adj) && adj[pos].to == ib {
		return adj[pos].kind
	}
	return NoEdge
}

// HasEdge reports whether a and b are adjacent
func (g *Graph) HasEdge(a, b Channel) bool {
	return g.EdgeKind(a, b) != NoEdge
}

// Neighbors returns the channels adjacent to c in ascending order
func (g *Graph) Neighbors(c Channel) []Channel {
	i, ok := g.index[c]
	if !ok {
		return nil
	}
	out := make([]Channel, len(g.adjacency[i]))
	for j, n := range g.adjacency[i] {
		out[j] = g.nodes[n.to]
	}
	return out
}

// VisitNeighbors calls fn with the dense index of every neighbour of node i,
// in ascending order.
func (g *Graph) VisitNeighbors(i int, fn func(j int)) {
	for _, n := range g.adjacency[i] {
		fn(n.to)
	}
}

// PhysicalEdges returns every physical wire once, lower channel first
func (g *Graph) PhysicalEdges() [][2]Channel {
	var out [][2]Channel
	for i, adj := range g.adjacency {
		for _, n := range adj {
			if n.kind == Physical && i < n.to {
				out = append(out, [2]Channel{g.nodes[i], g.nodes[n.to]})
			}
		}
	}
	return out
}
