package wpa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
)

// straightCFG is a single straight-line function entry -> mid -> join:
// a store to *p in mid, a load of *p in join, both through a pointer
// minted by a preceding Addr statement. The same fixture shape
// fspta/solver_test.go and vfspta/solver_test.go use, reproduced here
// since those types are unexported in their own packages.
type straightCFG struct{}

const (
	entryBlk frontend.BlockID = 1
	midBlk   frontend.BlockID = 2
	joinBlk  frontend.BlockID = 3

	storeLoc nodeid.LocID = 10
	loadLoc  nodeid.LocID = 20

	ptrNode nodeid.NodeID = 100
	valNode nodeid.NodeID = 101
	objBase nodeid.NodeID = 200
	valObj  nodeid.NodeID = 201
	loadDst nodeid.NodeID = 102
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
func (straightCFG) FuncAtObj(nodeid.NodeID) (frontend.FuncID, bool)    { return 0, false }

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

// TestBuildAndersenOnly exercises the default pipeline (C3-C5 only,
// C6/C7 disabled), checking the client-facing GetPts/Alias operations
// against the Andersen approximation.
func TestBuildAndersenOnly(t *testing.T) {
	cfg := DefaultConfig()
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Build(straightCFG{}, straightPAG{}))

	pts := a.GetPts(ptrNode)
	assert.True(t, pts.Has(objBase))

	assert.True(t, a.Alias(ptrNode, ptrNode), "a pointer always aliases itself")

	var buf bytes.Buffer
	require.NoError(t, a.DumpStat(&buf))
	assert.Contains(t, buf.String(), "andersen=")
}

// TestBuildFlowSensitive exercises C6 end to end through the Analyzer,
// checking the load sees the stored value via the flow-sensitive
// result rather than the coarser Andersen one.
func TestBuildFlowSensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunFlowSensitive = true
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Build(straightCFG{}, straightPAG{}))

	pts := a.GetPts(loadDst)
	assert.True(t, pts.Has(valObj))
	assert.True(t, a.Result().FlowSensitive)
	assert.False(t, a.Result().Versioned)
}

// TestBuildVersionedFlowSensitive exercises C7 end to end through the
// Analyzer.
func TestBuildVersionedFlowSensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunFlowSensitive = true
	cfg.Versioned = true
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Build(straightCFG{}, straightPAG{}))

	pts := a.GetPts(loadDst)
	assert.True(t, pts.Has(valObj))
	assert.True(t, a.Result().Versioned)
}
