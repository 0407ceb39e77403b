package memssa

import (
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
)

// FuncMSSA is the per-function MemSSA state: every mu/chi emitted at a
// location, the phi nodes inserted per block, and the bookkeeping
// insertPHI/SSARename need (usedRegs, reg2BBMap per §4.4 step 1).
type FuncMSSA struct {
	Fn frontend.FuncID

	EntryChi map[RegionID]*CHI
	RetMu    map[RegionID]*MU

	Mus  map[nodeid.LocID][]*MU
	Chis map[nodeid.LocID][]*CHI

	Phis map[frontend.BlockID]map[RegionID]*PhiNode

	usedRegs  map[RegionID]bool
	reg2BBMap map[RegionID]map[frontend.BlockID]bool // defining blocks per region
}

// PhiNode is a block-entry phi for one region; Operands is filled in
// during SSARename, one MRVer per incoming CFG edge in Preds(Block)
// order.
type PhiNode struct {
	Region   RegionID
	Block    frontend.BlockID
	Result   MRVer
	Operands []MRVer
}

func newFuncMSSA(fn frontend.FuncID) *FuncMSSA {
	return &FuncMSSA{
		Fn:        fn,
		EntryChi:  make(map[RegionID]*CHI),
		RetMu:     make(map[RegionID]*MU),
		Mus:       make(map[nodeid.LocID][]*MU),
		Chis:      make(map[nodeid.LocID][]*CHI),
		Phis:      make(map[frontend.BlockID]map[RegionID]*PhiNode),
		usedRegs:  make(map[RegionID]bool),
		reg2BBMap: make(map[RegionID]map[frontend.BlockID]bool),
	}
}

func (fm *FuncMSSA) markDef(r RegionID, b frontend.BlockID) {
	fm.usedRegs[r] = true
	if fm.reg2BBMap[r] == nil {
		fm.reg2BBMap[r] = make(map[frontend.BlockID]bool)
	}
	fm.reg2BBMap[r][b] = true
}

// createMUCHI builds fm's raw mu/chi skeleton (§4.4 step 1): every
// load/store/call instruction whose pointer operand's points-to set
// intersects a region gets a mu (load, call-mu) or chi (store,
// call-chi). Versions are left unassigned (nodeid.InvalidVersion)
// until SSARename runs; here we only establish which (loc, region)
// pairs exist and which blocks define which regions.
func createMUCHI(cfg frontend.CFG, pag frontend.PAG, pts PtsOf, objRegion map[nodeid.NodeID]RegionID, fn frontend.FuncID) *FuncMSSA {
	fm := newFuncMSSA(fn)

	regionsOf := func(ptr nodeid.NodeID) []RegionID {
		seen := make(map[RegionID]bool)
		var out []RegionID
		pts(ptr).ForEach(func(o nodeid.NodeID) {
			base := pag.GetBaseObj(o)
			r, ok := objRegion[base]
			if !ok {
				return
			}
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		})
		return out
	}

	for _, b := range cfg.Blocks(fn) {
		for _, inst := range cfg.Instructions(b) {
			switch inst.Kind {
			case frontend.InstLoad:
				for _, r := range regionsOf(inst.Ptr) {
					fm.usedRegs[r] = true
					fm.Mus[inst.Loc] = append(fm.Mus[inst.Loc], &MU{Loc: inst.Loc, Ver: MRVer{Region: r}})
				}
			case frontend.InstStore:
				for _, r := range regionsOf(inst.Ptr) {
					fm.markDef(r, b)
					fm.Chis[inst.Loc] = append(fm.Chis[inst.Loc], &CHI{
						Loc: inst.Loc,
						In:  MRVer{Region: r},
						Out: MRVer{Region: r, Def: StoreChi},
					})
				}
			case frontend.InstCallDirect, frontend.InstCallIndirect:
				// The callsite's own pointer-typed actual (if any) is
				// modeled as both a call-mu and a call-chi placeholder;
				// the precise per-parameter effect is resolved once
				// FormalIn/FormalOut wiring runs in C5, at which point
				// this call-site's entry in Mus/Chis is the anchor the
				// SVFG attaches ActualIn/ActualOut nodes to.
				if !inst.Ptr.Valid() {
					continue
				}
				for _, r := range regionsOf(inst.Ptr) {
					fm.usedRegs[r] = true
					fm.Mus[inst.Loc] = append(fm.Mus[inst.Loc], &MU{Loc: inst.Loc, Ver: MRVer{Region: r, Def: CallMu}})
					fm.markDef(r, b)
					fm.Chis[inst.Loc] = append(fm.Chis[inst.Loc], &CHI{
						Loc: inst.Loc,
						In:  MRVer{Region: r},
						Out: MRVer{Region: r, Def: CallChi},
					})
				}
			}
		}
	}

	entry := cfg.EntryBlock(fn)
	for r := range fm.usedRegs {
		fm.EntryChi[r] = &CHI{Loc: 0, In: MRVer{Region: r}, Out: MRVer{Region: r, Def: EntryChi}}
		fm.markDef(r, entry)
	}
	if cfg.HasReachableReturn(fn) {
		for r := range fm.usedRegs {
			fm.RetMu[r] = &MU{Loc: 0, Ver: MRVer{Region: r, Def: RetMu}}
		}
	}

	return fm
}
