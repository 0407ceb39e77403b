package svfg

import "github.com/svf-go/wpa/nodeid"

// Graph is the whole SVFG: a dense node arena plus adjacency lists,
// mutated only during construction and by the optimizer (§3
// "optimizer mutates it once; flow-sensitive solvers do not
// structurally modify it except through on-the-fly call-graph
// resolution").
type Graph struct {
	nodes []*Node
	out   map[nodeid.NodeID][]*Edge
	in    map[nodeid.NodeID][]*Edge
}

// New returns an empty graph; node id 0 is reserved and never minted.
func New() *Graph {
	return &Graph{
		nodes: make([]*Node, 1),
		out:   make(map[nodeid.NodeID][]*Edge),
		in:    make(map[nodeid.NodeID][]*Edge),
	}
}

// AddNode mints a fresh node and returns its id.
func (g *Graph) AddNode(n *Node) nodeid.NodeID {
	id := nodeid.NodeID(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, n)
	return id
}

func (g *Graph) Node(id nodeid.NodeID) *Node { return g.nodes[id] }

// NumNodes reports the node-slot count, including the reserved id 0.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Nodes returns every live (non-removed) node, for full-graph passes
// like the optimizer and serialization.
func (g *Graph) Nodes() []*Node {
	var out []*Node
	for _, n := range g.nodes[1:] {
		if n != nil && !n.removed {
			out = append(out, n)
		}
	}
	return out
}

// AddEdge links src -> dst; both endpoints must already be minted.
func (g *Graph) AddEdge(e *Edge) {
	g.out[e.Src] = append(g.out[e.Src], e)
	g.in[e.Dst] = append(g.in[e.Dst], e)
}

func (g *Graph) OutEdges(n nodeid.NodeID) []*Edge { return g.out[n] }
func (g *Graph) InEdges(n nodeid.NodeID) []*Edge  { return g.in[n] }

// RemoveNode excises n from future traversal (Nodes()) without
// renumbering ids, and drops every edge into or out of n from its
// neighbours' adjacency lists; rewiring the flow that should survive
// is the caller's job (the optimizer's).
func (g *Graph) RemoveNode(n nodeid.NodeID) {
	g.nodes[n].removed = true
	drop := func(edges []*Edge) []*Edge {
		var kept []*Edge
		for _, e := range edges {
			if e.Src != n && e.Dst != n {
				kept = append(kept, e)
			}
		}
		return kept
	}
	for _, e := range g.out[n] {
		g.in[e.Dst] = drop(g.in[e.Dst])
	}
	for _, e := range g.in[n] {
		g.out[e.Src] = drop(g.out[e.Src])
	}
	delete(g.out, n)
	delete(g.in, n)
}

// RemoveEdge deletes the first edge matching src/dst/class/variant; a
// no-op if no such edge exists.
func (g *Graph) RemoveEdge(src, dst nodeid.NodeID, class EdgeClass, variant EdgeVariant) {
	filter := func(edges []*Edge) []*Edge {
		out := edges[:0]
		removed := false
		for _, e := range edges {
			if !removed && e.Dst == dst && e.Class == class && e.Variant == variant {
				removed = true
				continue
			}
			out = append(out, e)
		}
		return out
	}
	g.out[src] = filter(g.out[src])
	g.in[dst] = filterByDst(g.in[dst], src, class, variant)
}

func filterByDst(edges []*Edge, src nodeid.NodeID, class EdgeClass, variant EdgeVariant) []*Edge {
	out := edges[:0]
	removed := false
	for _, e := range edges {
		if !removed && e.Src == src && e.Class == class && e.Variant == variant {
			removed = true
			continue
		}
		out = append(out, e)
	}
	return out
}
