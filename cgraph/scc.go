package cgraph

import "github.com/svf-go/wpa/nodeid"

// EdgeFlag selects which edge kinds an SCC traversal follows. Copy-gep
// processing only needs to see potential cycles among copy and gep
// edges (Direct); some callers additionally want the narrower
// copy-only view (CopyOnly) used while the solver is still discovering
// load/store-derived copy edges.
type EdgeFlag int

const (
	// Direct follows Copy and Gep edges.
	Direct EdgeFlag = iota
	// CopyOnly follows Copy edges alone.
	CopyOnly
)

type tarjanState struct {
	g       *Graph
	flag    EdgeFlag
	index   int
	dfn     map[nodeid.NodeID]int
	low     map[nodeid.NodeID]int
	onStack map[nodeid.NodeID]bool
	stack   []nodeid.NodeID
	sccs    [][]nodeid.NodeID
}

func (s *tarjanState) successors(n nodeid.NodeID) []nodeid.NodeID {
	node := s.g.nodes[n]
	out := make([]nodeid.NodeID, 0, len(node.DirectOut))
	for dst, attr := range node.DirectOut {
		if s.flag == CopyOnly && attr != nil {
			continue // skip Gep edges
		}
		out = append(out, dst)
	}
	return out
}

// DetectSCCs runs Nuutila's variant of Tarjan's algorithm over the
// edge set selected by flag: a single depth-first pass assigning dfn
// on entry and low = min(low, low(succ)), emitting an SCC on return
// when low == dfn. Only representative nodes (Find(n) == n) are
// visited; non-representatives were already folded into a prior
// merge.
func (g *Graph) DetectSCCs(flag EdgeFlag) [][]nodeid.NodeID {
	s := &tarjanState{
		g:       g,
		flag:    flag,
		dfn:     make(map[nodeid.NodeID]int),
		low:     make(map[nodeid.NodeID]int),
		onStack: make(map[nodeid.NodeID]bool),
	}
	for id := 1; id < len(g.nodes); id++ {
		n := nodeid.NodeID(id)
		if g.Find(n) != n {
			continue
		}
		if _, seen := s.dfn[n]; !seen {
			s.strongconnect(n)
		}
	}
	return s.sccs
}

func (s *tarjanState) strongconnect(v nodeid.NodeID) {
	s.dfn[v] = s.index
	s.low[v] = s.index
	s.index++
	s.stack = append(s.stack, v)
	s.onStack[v] = true

	for _, w := range s.successors(v) {
		w = s.g.Find(w)
		if w == v {
			continue
		}
		if _, seen := s.dfn[w]; !seen {
			s.strongconnect(w)
			if s.low[w] < s.low[v] {
				s.low[v] = s.low[w]
			}
		} else if s.onStack[w] {
			if s.dfn[w] < s.low[v] {
				s.low[v] = s.dfn[w]
			}
		}
	}

	if s.low[v] == s.dfn[v] {
		var scc []nodeid.NodeID
		for {
			n := len(s.stack) - 1
			w := s.stack[n]
			s.stack = s.stack[:n]
			s.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		s.sccs = append(s.sccs, scc)
	}
}

// MergeResult reports the outcome of folding one SCC into its
// representative.
type MergeResult struct {
	Rep              nodeid.NodeID
	PWC              bool // the SCC contained at least one Gep edge
	FieldInsensitive bool // a PWC reached objects through a Variant gep
}

// MergeSCC folds members (as produced by DetectSCCs) into a single
// representative: the lowest-id member becomes rep, unionPts is
// invoked once per absorbed member so the caller's points-to store can
// fold pts(member) into pts(rep), and every edge touching an absorbed
// member is rewritten to touch rep instead. The SCC is flagged a
// positive-weight cycle iff it contains at least one Gep edge between
// two of its members; rep is additionally marked field-insensitive
// when a PWC contains a Variant gep.
func (g *Graph) MergeSCC(members []nodeid.NodeID, unionPts func(dst, src nodeid.NodeID)) MergeResult {
	if len(members) == 0 {
		return MergeResult{}
	}
	rep := members[0]
	for _, m := range members[1:] {
		if m < rep {
			rep = m
		}
	}

	pwc := false
	variant := false
	memberSet := make(map[nodeid.NodeID]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}
	for _, m := range members {
		for dst, attr := range g.nodes[m].DirectOut {
			if attr != nil && memberSet[dst] {
				pwc = true
				if attr.Variant {
					variant = true
				}
			}
		}
	}

	for _, m := range members {
		if m == rep {
			continue
		}
		g.union(rep, m)
		unionPts(rep, m)
		g.absorb(rep, m)
	}

	if pwc {
		g.nodes[rep].PWC = true
	}
	if pwc && variant {
		g.nodes[rep].FieldInsensitive = true
	}

	return MergeResult{Rep: rep, PWC: pwc, FieldInsensitive: g.nodes[rep].FieldInsensitive}
}

// absorb rewrites every edge touching old so that it touches rep
// instead, then clears old's adjacency (old remains addressable via
// Find, which now resolves to rep).
func (g *Graph) absorb(rep, old nodeid.NodeID) {
	oldNode := g.nodes[old]
	repNode := g.nodes[rep]

	for obj := range oldNode.AddrIn {
		if obj == rep {
			continue
		}
		repNode.AddrIn[obj] = true
		g.nodes[obj].AddrOut[rep] = true
		delete(g.nodes[obj].AddrOut, old)
	}
	for ptr := range oldNode.AddrOut {
		if ptr == rep {
			continue
		}
		repNode.AddrOut[ptr] = true
		g.nodes[ptr].AddrIn[rep] = true
		delete(g.nodes[ptr].AddrIn, old)
	}

	for src, attr := range oldNode.DirectIn {
		if src == rep {
			continue
		}
		if _, exists := repNode.DirectIn[src]; !exists {
			repNode.DirectIn[src] = attr
		}
		g.nodes[src].DirectOut[rep] = attr
		delete(g.nodes[src].DirectOut, old)
	}
	for dst, attr := range oldNode.DirectOut {
		if dst == rep {
			continue
		}
		if _, exists := repNode.DirectOut[dst]; !exists {
			repNode.DirectOut[dst] = attr
		}
		g.nodes[dst].DirectIn[rep] = attr
		delete(g.nodes[dst].DirectIn, old)
	}

	for ptr := range oldNode.LoadIn {
		repNode.LoadIn[ptr] = true
		g.nodes[ptr].LoadOut[rep] = true
		delete(g.nodes[ptr].LoadOut, old)
	}
	for dst := range oldNode.LoadOut {
		repNode.LoadOut[dst] = true
		g.nodes[dst].LoadIn[rep] = true
		delete(g.nodes[dst].LoadIn, old)
	}

	for src := range oldNode.StoreIn {
		repNode.StoreIn[src] = true
		g.nodes[src].StoreOut[rep] = true
		delete(g.nodes[src].StoreOut, old)
	}
	for ptr := range oldNode.StoreOut {
		repNode.StoreOut[ptr] = true
		g.nodes[ptr].StoreIn[rep] = true
		delete(g.nodes[ptr].StoreIn, old)
	}

	*oldNode = ConstraintNode{ID: old, par: oldNode.par}
}
