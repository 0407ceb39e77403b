package svfg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
)

// diamondCFG mirrors memssa's fixture: entry -> {then, els} -> join,
// with a store to *p in then and a load of *p in join through a fixed
// single-object pts for p. Its PAG holds only the store and the load,
// so no top-level def reaches either of them and wireTopLevelDirect
// builds no direct edges.
type diamondCFG struct{}

const (
	entry frontend.BlockID = 1
	then  frontend.BlockID = 2
	els   frontend.BlockID = 3
	join  frontend.BlockID = 4

	storeLoc nodeid.LocID = 10
	loadLoc  nodeid.LocID = 20

	ptrNode nodeid.NodeID = 100
	valNode nodeid.NodeID = 101
	objBase nodeid.NodeID = 200
)

func (diamondCFG) Functions() []frontend.FuncID            { return []frontend.FuncID{1} }
func (diamondCFG) IsAddressTaken(frontend.FuncID) bool      { return false }
func (diamondCFG) Reachable(frontend.FuncID) bool           { return true }
func (diamondCFG) HasReachableReturn(frontend.FuncID) bool  { return true }

func (diamondCFG) Blocks(frontend.FuncID) []frontend.BlockID {
	return []frontend.BlockID{entry, then, els, join}
}
func (diamondCFG) EntryBlock(frontend.FuncID) frontend.BlockID { return entry }

func (diamondCFG) Succs(b frontend.BlockID) []frontend.BlockID {
	switch b {
	case entry:
		return []frontend.BlockID{then, els}
	case then, els:
		return []frontend.BlockID{join}
	default:
		return nil
	}
}

func (diamondCFG) Preds(b frontend.BlockID) []frontend.BlockID {
	switch b {
	case then, els:
		return []frontend.BlockID{entry}
	case join:
		return []frontend.BlockID{then, els}
	default:
		return nil
	}
}

func (diamondCFG) IDom(b frontend.BlockID) frontend.BlockID {
	switch b {
	case then, els, join:
		return entry
	default:
		return 0
	}
}

func (diamondCFG) DominanceFrontier(b frontend.BlockID) []frontend.BlockID {
	switch b {
	case then, els:
		return []frontend.BlockID{join}
	default:
		return nil
	}
}

func (diamondCFG) Instructions(b frontend.BlockID) []frontend.Inst {
	switch b {
	case then:
		return []frontend.Inst{{Kind: frontend.InstStore, Loc: storeLoc, Ptr: ptrNode}}
	case join:
		return []frontend.Inst{{Kind: frontend.InstLoad, Loc: loadLoc, Ptr: ptrNode}}
	default:
		return nil
	}
}

func (diamondCFG) DirectCallers(frontend.FuncID) []nodeid.CallsiteID { return nil }
func (diamondCFG) CallsiteFunc(nodeid.CallsiteID) frontend.FuncID    { return 0 }
func (diamondCFG) CallsiteBlock(nodeid.CallsiteID) frontend.BlockID  { return 0 }
func (diamondCFG) IsMainFunc(frontend.FuncID) bool                   { return true }
func (diamondCFG) FuncAtObj(nodeid.NodeID) (frontend.FuncID, bool)    { return 0, false }

type diamondPAG struct{}

func (diamondPAG) NumNodes() int { return 256 }

// Statements gives the load/store their top-level shape: the store
// writes valNode through ptrNode, the load reads through ptrNode into
// a fresh value (dst 102).
func (diamondPAG) Statements() []frontend.Stmt {
	return []frontend.Stmt{
		{Kind: frontend.StmtStore, Src: valNode, Dst: ptrNode, Loc: storeLoc},
		{Kind: frontend.StmtLoad, Src: ptrNode, Dst: 102, Loc: loadLoc},
	}
}

func (diamondPAG) GetBaseObj(n nodeid.NodeID) nodeid.NodeID          { return n }
func (diamondPAG) GetAllFieldsObjVars(nodeid.NodeID) []nodeid.NodeID { return nil }
func (diamondPAG) IsFieldInsensitive(nodeid.NodeID) bool             { return false }
func (diamondPAG) IsHeapMemObj(nodeid.NodeID) bool                   { return false }
func (diamondPAG) IsBlkObjOrConstantObj(nodeid.NodeID) bool          { return false }
func (diamondPAG) IsNonPointerObj(nodeid.NodeID) bool                { return false }
func (diamondPAG) IsLocalVarInRecursiveFun(nodeid.NodeID) bool       { return false }
func (diamondPAG) GetGepObjVar(nodeid.NodeID, uint32) nodeid.NodeID  { return 0 }
func (diamondPAG) GetFIObjVar(base nodeid.NodeID) nodeid.NodeID      { return base }
func (diamondPAG) IndirectCallsites() []nodeid.CallsiteID            { return nil }
func (diamondPAG) FuncPtrNode(nodeid.CallsiteID) nodeid.NodeID       { return 0 }
func (diamondPAG) ResolveIndCalls(nodeid.CallsiteID, bitset.PointsTo, *[]frontend.CallEdge) {}
func (diamondPAG) ResolveCPPIndCalls(nodeid.CallsiteID, bitset.PointsTo, frontend.CHG, *[]frontend.CallEdge) {
}

func fixedPts(_ nodeid.NodeID) bitset.PointsTo { return bitset.NewPointsTo(objBase) }

func buildDiamondSVFG(t *testing.T) *Graph {
	t.Helper()
	cfg := diamondCFG{}
	pag := diamondPAG{}

	mssa, err := memssa.Build(cfg, pag, fixedPts, memssa.IntraDisjoint)
	require.NoError(t, err)

	return Build(cfg, pag, mssa)
}

// TestBuildWiresStoreToJoinPhi checks the indirect intra-procedural
// edges mirror what memssa's rename computed: the store's chi feeds
// the join block's phi, and the phi feeds the load's mu.
func TestBuildWiresStoreToJoinPhi(t *testing.T) {
	g := buildDiamondSVFG(t)

	var storeNode, loadNode, phiNode *Node
	for _, n := range g.Nodes() {
		switch {
		case n.Kind == KindStore:
			storeNode = n
		case n.Kind == KindLoad:
			loadNode = n
		case n.Kind == KindMSSAPhi:
			phiNode = n
		}
	}
	require.NotNil(t, storeNode, "store node must exist")
	require.NotNil(t, loadNode, "load node must exist")
	require.NotNil(t, phiNode, "join block must have gotten an MSSAPhi node")

	foundStoreToPhi := false
	for _, e := range g.OutEdges(storeNode.ID) {
		if e.Dst == phiNode.ID && e.Class == Indirect {
			foundStoreToPhi = true
		}
	}
	assert.True(t, foundStoreToPhi, "store's chi must flow into the join phi")

	foundPhiToLoad := false
	for _, e := range g.OutEdges(phiNode.ID) {
		if e.Dst == loadNode.ID && e.Class == Indirect {
			foundPhiToLoad = true
		}
	}
	assert.True(t, foundPhiToLoad, "join phi must flow into the load's mu")
}

// TestOptimizeBypassesDeadPhi confirms the optimizer's self-cycle
// stripping and bypass pass never disconnects the store-to-load chain
// it's meant to simplify: after Optimize the join phi is gone and a
// value flow path (now direct, the phi having been bypassed) still
// exists.
func TestOptimizeBypassesDeadPhi(t *testing.T) {
	g := buildDiamondSVFG(t)

	var storeNode, loadNode *Node
	for _, n := range g.Nodes() {
		switch n.Kind {
		case KindStore:
			storeNode = n
		case KindLoad:
			loadNode = n
		}
	}
	require.NotNil(t, storeNode)
	require.NotNil(t, loadNode)

	before := len(g.Nodes())
	Optimize(g, diamondCFG{}, diamondPAG{}, DefaultOptConfig())
	after := len(g.Nodes())
	assert.LessOrEqual(t, after, before, "optimizer only removes nodes, never adds")

	reachable := bfsReaches(g, storeNode.ID, loadNode.ID)
	assert.True(t, reachable, "store must still reach load after optimization, possibly via a bypassed direct edge")

	for _, n := range g.Nodes() {
		assert.NotEqual(t, KindMSSAPhi, n.Kind, "the join phi must have been bypassed")
	}
}

func bfsReaches(g *Graph, from, to nodeid.NodeID) bool {
	seen := map[nodeid.NodeID]bool{from: true}
	queue := []nodeid.NodeID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for _, e := range g.OutEdges(cur) {
			if !seen[e.Dst] {
				seen[e.Dst] = true
				queue = append(queue, e.Dst)
			}
		}
	}
	return false
}

// TestWriteReadRoundTrip checks the textual on-disk format preserves
// node identity, kind and topology, per the round-trip testable
// property: readSVFG(writeSVFG(g)) has the same node ids/kinds and
// edge endpoints as g.
func TestWriteReadRoundTrip(t *testing.T) {
	g := buildDiamondSVFG(t)

	var buf bytes.Buffer
	require.NoError(t, Write(g, &buf))

	g2, err := Read(&buf)
	require.NoError(t, err)

	for _, n := range g.Nodes() {
		n2 := g2.Node(n.ID)
		require.NotNil(t, n2, "node %d must survive round-trip", n.ID)
		assert.Equal(t, n.Kind, n2.Kind, "node %d kind must be preserved", n.ID)
	}

	origEdges := map[[2]nodeid.NodeID]bool{}
	for _, n := range g.Nodes() {
		for _, e := range g.OutEdges(n.ID) {
			origEdges[[2]nodeid.NodeID{e.Src, e.Dst}] = true
		}
	}
	for _, n := range g2.Nodes() {
		for _, e := range g2.OutEdges(n.ID) {
			assert.True(t, origEdges[[2]nodeid.NodeID{e.Src, e.Dst}], "round-tripped edge %d=>%d must have existed in the original", e.Src, e.Dst)
		}
	}
}
