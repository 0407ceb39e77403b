package frontend

import (
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"

	"github.com/svf-go/wpa/nodeid"
)

// SSANodeMap assigns dense NodeIDs to ssa.Value and ssa.Member
// entities, the same minting discipline the original go/pointer
// analysis used (see pointer/gen.go's valueNode/objectNode). It is not
// a full front-end: it only demonstrates the shape a real PAG
// implementation mints ids in, and gives test code a concrete way to
// build small PAG fixtures directly from hand-written SSA.
type SSANodeMap struct {
	next   nodeid.NodeID
	values map[ssa.Value]nodeid.NodeID
	objs   map[ssa.Value]nodeid.NodeID
}

// NewSSANodeMap returns a node map with id 0 reserved, matching the
// core's "zero NodeID means non-pointerlike" convention.
func NewSSANodeMap() *SSANodeMap {
	return &SSANodeMap{
		next:   1,
		values: make(map[ssa.Value]nodeid.NodeID),
		objs:   make(map[ssa.Value]nodeid.NodeID),
	}
}

func (m *SSANodeMap) fresh() nodeid.NodeID {
	id := m.next
	m.next++
	return id
}

// ValueNode returns the id of the value node for v, minting one on
// first use.
func (m *SSANodeMap) ValueNode(v ssa.Value) nodeid.NodeID {
	if id, ok := m.values[v]; ok {
		return id
	}
	id := m.fresh()
	m.values[v] = id
	return id
}

// ObjectNode returns the id of the object node v allocates (for
// ssa.Alloc, ssa.Global, ssa.Function, ssa.MakeClosure and similar
// allocation-shaped instructions), minting one on first use.
func (m *SSANodeMap) ObjectNode(v ssa.Value) nodeid.NodeID {
	if id, ok := m.objs[v]; ok {
		return id
	}
	id := m.fresh()
	m.objs[v] = id
	return id
}

// NumNodes reports how many ids have been minted, including id 0.
func (m *SSANodeMap) NumNodes() int { return int(m.next) }

// CallGraphView adapts a golang.org/x/tools/go/callgraph.Graph into
// the "produced for clients" call-graph surface: AddEdge records
// resolved caller -> callee edges, and a stats/dump consumer (out of
// core scope) can walk the result with the standard callgraph
// utilities. None of the solvers in this module add edges to it.
type CallGraphView struct {
	G *callgraph.Graph
}

// NewCallGraphView wraps a fresh callgraph.Graph.
func NewCallGraphView() *CallGraphView {
	return &CallGraphView{G: callgraph.New(nil)}
}

// AddEdge records a resolved caller -> callee edge at a callsite. Site
// may be nil for edges synthesized by the core (e.g. the root-calls
// edge to main), matching callgraph.AddEdge's own convention.
func (v *CallGraphView) AddEdge(caller, callee *ssa.Function, site ssa.CallInstruction) {
	cn := v.G.CreateNode(caller)
	en := v.G.CreateNode(callee)
	callgraph.AddEdge(cn, site, en)
}
