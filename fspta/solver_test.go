package fspta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/svfg"
)

// straightCFG is a single straight-line function entry -> mid -> join,
// a store to *p in mid and a load of *p in join, with no merge point so
// the store's chi reaches the load's mu directly (no phi involved),
// letting the strong-update rule's singleton-pointee case run cleanly.
type straightCFG struct{}

const (
	entryBlk frontend.BlockID = 1
	midBlk   frontend.BlockID = 2
	joinBlk  frontend.BlockID = 3

	storeLoc nodeid.LocID = 10
	loadLoc  nodeid.LocID = 20

	ptrNode  nodeid.NodeID = 100
	valNode  nodeid.NodeID = 101
	objBase  nodeid.NodeID = 200
	valObj   nodeid.NodeID = 201
	loadDst  nodeid.NodeID = 102
)

func (straightCFG) Functions() []frontend.FuncID           { return []frontend.FuncID{1} }
func (straightCFG) IsAddressTaken(frontend.FuncID) bool     { return false }
func (straightCFG) Reachable(frontend.FuncID) bool          { return true }
func (straightCFG) HasReachableReturn(frontend.FuncID) bool { return true }

func (straightCFG) Blocks(frontend.FuncID) []frontend.BlockID {
	return []frontend.BlockID{entryBlk, midBlk, joinBlk}
}
func (straightCFG) EntryBlock(frontend.FuncID) frontend.BlockID { return entryBlk }

func (straightCFG) Succs(b frontend.BlockID) []frontend.BlockID {
	switch b {
	case entryBlk:
		return []frontend.BlockID{midBlk}
	case midBlk:
		return []frontend.BlockID{joinBlk}
	default:
		return nil
	}
}

func (straightCFG) Preds(b frontend.BlockID) []frontend.BlockID {
	switch b {
	case midBlk:
		return []frontend.BlockID{entryBlk}
	case joinBlk:
		return []frontend.BlockID{midBlk}
	default:
		return nil
	}
}

func (straightCFG) IDom(b frontend.BlockID) frontend.BlockID {
	switch b {
	case midBlk:
		return entryBlk
	case joinBlk:
		return midBlk
	default:
		return 0
	}
}

func (straightCFG) DominanceFrontier(frontend.BlockID) []frontend.BlockID { return nil }

func (straightCFG) Instructions(b frontend.BlockID) []frontend.Inst {
	switch b {
	case midBlk:
		return []frontend.Inst{{Kind: frontend.InstStore, Loc: storeLoc, Ptr: ptrNode}}
	case joinBlk:
		return []frontend.Inst{{Kind: frontend.InstLoad, Loc: loadLoc, Ptr: ptrNode}}
	default:
		return nil
	}
}

func (straightCFG) DirectCallers(frontend.FuncID) []nodeid.CallsiteID { return nil }
func (straightCFG) CallsiteFunc(nodeid.CallsiteID) frontend.FuncID    { return 0 }
func (straightCFG) CallsiteBlock(nodeid.CallsiteID) frontend.BlockID  { return 0 }
func (straightCFG) IsMainFunc(frontend.FuncID) bool                   { return true }
func (straightCFG) FuncAtObj(nodeid.NodeID) (frontend.FuncID, bool)   { return 0, false }

type straightPAG struct{}

func (straightPAG) NumNodes() int { return 256 }

func (straightPAG) Statements() []frontend.Stmt {
	return []frontend.Stmt{
		{Kind: frontend.StmtAddr, Dst: ptrNode, Src: objBase, Loc: 1},
		{Kind: frontend.StmtAddr, Dst: valNode, Src: valObj, Loc: 2},
		{Kind: frontend.StmtStore, Src: valNode, Dst: ptrNode, Loc: storeLoc},
		{Kind: frontend.StmtLoad, Src: ptrNode, Dst: loadDst, Loc: loadLoc},
	}
}

func (straightPAG) GetBaseObj(n nodeid.NodeID) nodeid.NodeID          { return n }
func (straightPAG) GetAllFieldsObjVars(nodeid.NodeID) []nodeid.NodeID { return nil }
func (straightPAG) IsFieldInsensitive(nodeid.NodeID) bool             { return false }
func (straightPAG) IsHeapMemObj(nodeid.NodeID) bool                   { return false }
func (straightPAG) IsBlkObjOrConstantObj(nodeid.NodeID) bool          { return false }
func (straightPAG) IsNonPointerObj(nodeid.NodeID) bool                { return false }
func (straightPAG) IsLocalVarInRecursiveFun(nodeid.NodeID) bool       { return false }
func (straightPAG) GetGepObjVar(nodeid.NodeID, uint32) nodeid.NodeID  { return 0 }
func (straightPAG) GetFIObjVar(base nodeid.NodeID) nodeid.NodeID      { return base }
func (straightPAG) IndirectCallsites() []nodeid.CallsiteID            { return nil }
func (straightPAG) FuncPtrNode(nodeid.CallsiteID) nodeid.NodeID       { return 0 }
func (straightPAG) ResolveIndCalls(nodeid.CallsiteID, bitset.PointsTo, *[]frontend.CallEdge) {}
func (straightPAG) ResolveCPPIndCalls(nodeid.CallsiteID, bitset.PointsTo, frontend.CHG, *[]frontend.CallEdge) {
}

func fixedSinglePts(_ nodeid.NodeID) bitset.PointsTo { return bitset.NewPointsTo(objBase) }

func buildStraightSolver(t *testing.T) *Solver {
	t.Helper()
	cfg := straightCFG{}
	pag := straightPAG{}

	mssa, err := memssa.Build(cfg, pag, fixedSinglePts, memssa.IntraDisjoint)
	require.NoError(t, err)

	g := svfg.Build(cfg, pag, mssa)

	s, err := New(pag, cfg, g, mssa, DefaultConfig())
	require.NoError(t, err)
	return s
}

// TestSolveStrongUpdatePropagatesStoredValue exercises S6: a store
// through a singleton, non-heap local pointer must strong-update its
// region, so the subsequent load sees exactly the stored value and
// nothing stale merged in alongside it.
func TestSolveStrongUpdatePropagatesStoredValue(t *testing.T) {
	s := buildStraightSolver(t)

	res, err := s.Solve()
	require.NoError(t, err)

	got := res.GetPts(loadDst)
	assert.True(t, got.Has(valObj), "load must see the value written by the dominating store")
	assert.Equal(t, 1, got.Len(), "a singleton strong update leaves no stale pointee behind")
	assert.Greater(t, res.Stats.StrongUpdates, 0, "the store must have been classified as a strong update")
}

// TestSolveConverges checks Solve terminates (returns no error) within
// the default pass budget on a tiny, acyclic SVFG — a basic sanity
// check on the outer {SCCDetect, drain worklist} loop's halting
// condition.
func TestSolveConverges(t *testing.T) {
	s := buildStraightSolver(t)

	res, err := s.Solve()
	require.NoError(t, err)
	assert.False(t, res.Stats.TimedOut)
	assert.GreaterOrEqual(t, res.Stats.OuterPasses, 1)
}
