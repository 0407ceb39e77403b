package memssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
)

// diamondCFG models: entry -> {then, els} -> join, with a store to *p
// in then and a load of *p in join, both through the same pointer
// node p whose Andersen pts is fixed to a single base object. This is
// the textbook case insertPHI/SSARename must get right: one phi for
// the region at the merge point, fed by the store's fresh version on
// the then edge and the entry chi's version on the els edge.
type diamondCFG struct{}

const (
	entry frontend.BlockID = 1
	then  frontend.BlockID = 2
	els   frontend.BlockID = 3
	join  frontend.BlockID = 4

	storeLoc nodeid.LocID = 10
	loadLoc  nodeid.LocID = 20

	ptrNode nodeid.NodeID = 100
	objBase nodeid.NodeID = 200
)

func (diamondCFG) Functions() []frontend.FuncID           { return []frontend.FuncID{1} }
func (diamondCFG) IsAddressTaken(frontend.FuncID) bool    { return false }
func (diamondCFG) Reachable(frontend.FuncID) bool         { return true }
func (diamondCFG) HasReachableReturn(frontend.FuncID) bool { return true }

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

func (diamondCFG) DirectCallers(frontend.FuncID) []nodeid.CallsiteID    { return nil }
func (diamondCFG) CallsiteFunc(nodeid.CallsiteID) frontend.FuncID      { return 0 }
func (diamondCFG) CallsiteBlock(nodeid.CallsiteID) frontend.BlockID    { return 0 }
func (diamondCFG) IsMainFunc(frontend.FuncID) bool                     { return true }
func (diamondCFG) FuncAtObj(nodeid.NodeID) (frontend.FuncID, bool)      { return 0, false }

type identityPAG struct{}

func (identityPAG) NumNodes() int                                  { return 256 }
func (identityPAG) Statements() []frontend.Stmt                    { return nil }
func (identityPAG) GetBaseObj(n nodeid.NodeID) nodeid.NodeID        { return n }
func (identityPAG) GetAllFieldsObjVars(nodeid.NodeID) []nodeid.NodeID { return nil }
func (identityPAG) IsFieldInsensitive(nodeid.NodeID) bool           { return false }
func (identityPAG) IsHeapMemObj(nodeid.NodeID) bool                 { return false }
func (identityPAG) IsBlkObjOrConstantObj(nodeid.NodeID) bool        { return false }
func (identityPAG) IsNonPointerObj(nodeid.NodeID) bool              { return false }
func (identityPAG) IsLocalVarInRecursiveFun(nodeid.NodeID) bool     { return false }
func (identityPAG) GetGepObjVar(nodeid.NodeID, uint32) nodeid.NodeID { return 0 }
func (identityPAG) GetFIObjVar(base nodeid.NodeID) nodeid.NodeID    { return base }
func (identityPAG) IndirectCallsites() []nodeid.CallsiteID          { return nil }
func (identityPAG) FuncPtrNode(nodeid.CallsiteID) nodeid.NodeID     { return 0 }
func (identityPAG) ResolveIndCalls(nodeid.CallsiteID, bitset.PointsTo, *[]frontend.CallEdge) {}
func (identityPAG) ResolveCPPIndCalls(nodeid.CallsiteID, bitset.PointsTo, frontend.CHG, *[]frontend.CallEdge) {
}

func fixedPts(_ nodeid.NodeID) bitset.PointsTo { return bitset.NewPointsTo(objBase) }

func TestMemSSADiamondPhiAndVersions(t *testing.T) {
	cfg := diamondCFG{}
	pag := identityPAG{}

	m, err := Build(cfg, pag, fixedPts, IntraDisjoint)
	require.NoError(t, err)

	fm := m.Func(1)
	require.NotNil(t, fm)

	region, ok := m.ObjRegion[objBase]
	require.True(t, ok, "objBase must have been assigned a region")

	entryChi := fm.EntryChi[region]
	require.NotNil(t, entryChi)
	assert.Equal(t, nodeid.Version(0), entryChi.Out.Version, "entry chi must be the first version minted")

	joinPhis := fm.Phis[join]
	require.NotNil(t, joinPhis)
	phi := joinPhis[region]
	require.NotNil(t, phi, "insertPHI must place a phi for the region at the merge block")
	require.Len(t, phi.Operands, 2)

	storeChis := fm.Chis[storeLoc]
	require.Len(t, storeChis, 1)
	storeVer := storeChis[0].Out.Version

	// then is preds[0] of join, els is preds[1]; then's operand must be
	// the store's freshly minted version, els's operand must still be
	// the entry chi's version (no def on that path).
	assert.Equal(t, storeVer, phi.Operands[0].Version)
	assert.Equal(t, entryChi.Out.Version, phi.Operands[1].Version)
	assert.NotEqual(t, phi.Operands[0].Version, phi.Operands[1].Version)

	loadMus := fm.Mus[loadLoc]
	require.Len(t, loadMus, 1)
	assert.Equal(t, phi.Result.Version, loadMus[0].Ver.Version, "the load must consume the merge phi's version")
}
