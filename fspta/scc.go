package fspta

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/svfg"
)

// svfgView adapts an *svfg.Graph to gonum's graph.Directed so the outer
// loop's SCCDetect(SVFG) step (§4.6 "iterate {SCCDetect(SVFG), run
// worklist to empty}") can reuse gonum.org/v1/gonum/graph/topo's Tarjan
// implementation instead of a second hand-rolled one (cgraph already
// has its own, purpose-built for the narrower copy/gep edge view the
// Andersen solver needs; the SVFG's view spans every edge class, which
// is exactly the general-purpose graph gonum's topo package targets).
type svfgView struct {
	g *svfg.Graph
}

func (v svfgView) Node(id int64) graph.Node {
	n := v.g.Node(nodeid.NodeID(id))
	if n == nil {
		return nil
	}
	return simple.Node(id)
}

func (v svfgView) Nodes() graph.Nodes {
	nodes := v.g.Nodes()
	out := make([]graph.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, simple.Node(int64(n.ID)))
	}
	return iterator.NewOrderedNodes(out)
}

func (v svfgView) From(id int64) graph.Nodes {
	edges := v.g.OutEdges(nodeid.NodeID(id))
	out := make([]graph.Node, 0, len(edges))
	for _, e := range edges {
		out = append(out, simple.Node(int64(e.Dst)))
	}
	return iterator.NewOrderedNodes(out)
}

func (v svfgView) HasEdgeBetween(xid, yid int64) bool {
	return v.HasEdgeFromTo(xid, yid) || v.HasEdgeFromTo(yid, xid)
}

func (v svfgView) HasEdgeFromTo(uid, vid int64) bool {
	for _, e := range v.g.OutEdges(nodeid.NodeID(uid)) {
		if e.Dst == nodeid.NodeID(vid) {
			return true
		}
	}
	return false
}

func (v svfgView) Edge(uid, vid int64) graph.Edge {
	if !v.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}

// detectSCCs runs gonum's Tarjan SCC over the whole SVFG, returning
// each component as a slice of nodeid.NodeID, order unspecified beyond
// whatever topo.TarjanSCC itself guarantees (reverse topological order
// of the condensation, per its doc comment).
func detectSCCs(g *svfg.Graph) [][]nodeid.NodeID {
	comps := topo.TarjanSCC(svfgView{g: g})
	out := make([][]nodeid.NodeID, 0, len(comps))
	for _, comp := range comps {
		ids := make([]nodeid.NodeID, 0, len(comp))
		for _, n := range comp {
			ids = append(ids, nodeid.NodeID(n.ID()))
		}
		out = append(out, ids)
	}
	return out
}
