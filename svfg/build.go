package svfg

import (
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
)

type verKey struct {
	fn      frontend.FuncID
	region  memssa.RegionID
	version nodeid.Version
}

// builder holds the mutable correlation tables Build needs while
// wiring nodes together; it is discarded once construction finishes.
type builder struct {
	g    *Graph
	cfg  frontend.CFG
	pag  frontend.PAG
	mssa *memssa.MemSSA

	topLevel map[nodeid.LocID]nodeid.NodeID // Load/Store top-level node per PAG stmt location
	topDef   map[nodeid.NodeID]nodeid.NodeID // PAG value id -> SVFG node defining it (top-level direct flow)
	formalIn map[frontend.FuncID]map[memssa.RegionID]nodeid.NodeID
	formalOut map[frontend.FuncID]map[memssa.RegionID]nodeid.NodeID
	actualIn map[nodeid.LocID]map[memssa.RegionID]nodeid.NodeID
	actualOut map[nodeid.LocID]map[memssa.RegionID]nodeid.NodeID
	phiNode  map[frontend.FuncID]map[frontend.BlockID]map[memssa.RegionID]nodeid.NodeID

	formalParm map[nodeid.NodeID]nodeid.NodeID         // PAG formal-param id -> SVFG FormalParm node, deduped
	formalRet  map[nodeid.NodeID]nodeid.NodeID         // PAG formal-ret id -> SVFG FormalRet node, deduped
	actualRet  map[[2]nodeid.NodeID]nodeid.NodeID      // (callsite as NodeID-shaped key, PAG dst) -> ActualRet node

	// locCS maps a call instruction's own ICFG location to its
	// callsite id, so the address-taken nodes built per-location in
	// buildAddressTaken can stamp the Callsite field on ActualIn/
	// ActualOut the same way wireActualFormalParm/wireFormalActualRet
	// already do for ActualParm/ActualRet. Needed so a callee
	// discovered only after an indirect callsite resolves (§4.6) can
	// find this call's ActualIn/ActualOut nodes by Callsite alone,
	// without re-deriving the location from the CFG a second time.
	locCS map[nodeid.LocID]nodeid.CallsiteID

	defOf map[verKey]nodeid.NodeID
}

// Build runs the full raw-construction pass of §4.5: top-level nodes
// from every PAG statement, one address-taken node per MemSSA
// operator, and the direct/indirect edges connecting them.
func Build(cfg frontend.CFG, pag frontend.PAG, mssa *memssa.MemSSA) *Graph {
	b := &builder{
		g:          New(),
		cfg:        cfg,
		pag:        pag,
		mssa:       mssa,
		topLevel:   make(map[nodeid.LocID]nodeid.NodeID),
		topDef:     make(map[nodeid.NodeID]nodeid.NodeID),
		formalIn:   make(map[frontend.FuncID]map[memssa.RegionID]nodeid.NodeID),
		formalOut:  make(map[frontend.FuncID]map[memssa.RegionID]nodeid.NodeID),
		actualIn:   make(map[nodeid.LocID]map[memssa.RegionID]nodeid.NodeID),
		actualOut:  make(map[nodeid.LocID]map[memssa.RegionID]nodeid.NodeID),
		phiNode:    make(map[frontend.FuncID]map[frontend.BlockID]map[memssa.RegionID]nodeid.NodeID),
		formalParm: make(map[nodeid.NodeID]nodeid.NodeID),
		formalRet:  make(map[nodeid.NodeID]nodeid.NodeID),
		actualRet:  make(map[[2]nodeid.NodeID]nodeid.NodeID),
		defOf:      make(map[verKey]nodeid.NodeID),
	}
	b.locCS = b.buildLocCallsite()

	b.buildTopLevel()
	b.wireTopLevelDirect()
	b.buildAddressTaken()
	b.wireIndirectIntra()
	b.wireInterprocedural()

	return b.g
}

func (b *builder) buildTopLevel() {
	for _, st := range b.pag.Statements() {
		switch st.Kind {
		case frontend.StmtAddr:
			id := b.g.AddNode(&Node{Kind: KindAddr, Stmt: st})
			b.topDef[st.Dst] = id
		case frontend.StmtCopy:
			id := b.g.AddNode(&Node{Kind: KindCopy, Stmt: st})
			b.topDef[st.Dst] = id
		case frontend.StmtGep:
			id := b.g.AddNode(&Node{Kind: KindGep, Stmt: st})
			b.topDef[st.Dst] = id
		case frontend.StmtLoad:
			id := b.g.AddNode(&Node{Kind: KindLoad, Stmt: st, Loc: st.Loc})
			b.topLevel[st.Loc] = id
			b.topDef[st.Dst] = id
		case frontend.StmtStore:
			id := b.g.AddNode(&Node{Kind: KindStore, Stmt: st, Loc: st.Loc})
			b.topLevel[st.Loc] = id
		case frontend.StmtCall:
			b.wireActualFormalParm(st)
		case frontend.StmtRet:
			b.wireFormalActualRet(st)
		}
	}
}

func (b *builder) wireActualFormalParm(st frontend.Stmt) {
	formal, ok := b.formalParm[st.Dst]
	if !ok {
		formal = b.g.AddNode(&Node{Kind: KindFormalParm, Stmt: frontend.Stmt{Kind: frontend.StmtCopy, Dst: st.Dst}})
		b.formalParm[st.Dst] = formal
		b.topDef[st.Dst] = formal
	}
	actual := b.g.AddNode(&Node{Kind: KindActualParm, Stmt: st, Callsite: st.Callsite})
	b.g.AddEdge(&Edge{Src: actual, Dst: formal, Class: Direct, Variant: CallVariant, Callsite: st.Callsite})
}

func (b *builder) wireFormalActualRet(st frontend.Stmt) {
	formal, ok := b.formalRet[st.Src]
	if !ok {
		formal = b.g.AddNode(&Node{Kind: KindFormalRet, Stmt: frontend.Stmt{Kind: frontend.StmtCopy, Src: st.Src}})
		b.formalRet[st.Src] = formal
	}
	key := [2]nodeid.NodeID{nodeid.NodeID(st.Callsite), st.Dst}
	actual, ok := b.actualRet[key]
	if !ok {
		actual = b.g.AddNode(&Node{Kind: KindActualRet, Stmt: st, Callsite: st.Callsite})
		b.actualRet[key] = actual
		b.topDef[st.Dst] = actual
	}
	b.g.AddEdge(&Edge{Src: formal, Dst: actual, Class: Direct, Variant: RetVariant, Callsite: st.Callsite})
}

// wireTopLevelDirect adds the def-use Direct/Intra edges of top-level
// value flow: every statement's value operand(s) get an edge from
// whatever node last defined that PAG id. Load and Store additionally
// consume their pointer operand, since the flow-sensitive solver's
// Load/Store rules (§4.6) need pts(pointer) as well as pts(value).
func (b *builder) wireTopLevelDirect() {
	for _, n := range b.g.Nodes() {
		switch n.Kind {
		case KindCopy, KindGep:
			if src, ok := b.topDef[n.Stmt.Src]; ok {
				b.g.AddEdge(&Edge{Src: src, Dst: n.ID, Class: Direct, Variant: IntraVariant})
			}
		case KindLoad:
			if ptr, ok := b.topDef[n.Stmt.Src]; ok {
				b.g.AddEdge(&Edge{Src: ptr, Dst: n.ID, Class: Direct, Variant: IntraVariant})
			}
		case KindStore:
			if val, ok := b.topDef[n.Stmt.Src]; ok {
				b.g.AddEdge(&Edge{Src: val, Dst: n.ID, Class: Direct, Variant: IntraVariant})
			}
			if ptr, ok := b.topDef[n.Stmt.Dst]; ok {
				b.g.AddEdge(&Edge{Src: ptr, Dst: n.ID, Class: Direct, Variant: IntraVariant})
			}
		}
	}
}

func (b *builder) buildAddressTaken() {
	for fn, fm := range b.mssa.Funcs {
		b.formalIn[fn] = make(map[memssa.RegionID]nodeid.NodeID)
		b.formalOut[fn] = make(map[memssa.RegionID]nodeid.NodeID)

		for region, chi := range fm.EntryChi {
			id := b.g.AddNode(&Node{Kind: KindFormalIn, Fn: fn, Ver: chi.Out})
			b.formalIn[fn][region] = id
			b.defOf[verKey{fn, region, chi.Out.Version}] = id
		}
		for region, mu := range fm.RetMu {
			id := b.g.AddNode(&Node{Kind: KindFormalOut, Fn: fn, Ver: mu.Ver})
			b.formalOut[fn][region] = id
		}
		for block, phis := range fm.Phis {
			b.phiNode[fn] = ensureBlockMap(b.phiNode[fn])
			b.phiNode[fn][block] = make(map[memssa.RegionID]nodeid.NodeID)
			for region, phi := range phis {
				id := b.g.AddNode(&Node{Kind: KindMSSAPhi, Fn: fn, Ver: phi.Result, OpVers: phi.Operands})
				b.phiNode[fn][block][region] = id
				b.defOf[verKey{fn, region, phi.Result.Version}] = id
			}
		}
		for loc, chis := range fm.Chis {
			if storeNode, ok := b.topLevel[loc]; ok {
				for _, chi := range chis {
					if chi.Out.Def == memssa.StoreChi {
						b.defOf[verKey{fn, chi.Out.Region, chi.Out.Version}] = storeNode
					}
				}
				continue
			}
			b.actualOut[loc] = make(map[memssa.RegionID]nodeid.NodeID)
			for _, chi := range chis {
				if chi.Out.Def != memssa.CallChi {
					continue
				}
				id := b.g.AddNode(&Node{Kind: KindActualOut, Fn: fn, Loc: loc, Ver: chi.Out, Callsite: b.locCS[loc]})
				b.actualOut[loc][chi.Out.Region] = id
				b.defOf[verKey{fn, chi.Out.Region, chi.Out.Version}] = id
			}
		}
		for loc, mus := range fm.Mus {
			if _, isLoad := b.topLevel[loc]; isLoad {
				continue
			}
			b.actualIn[loc] = make(map[memssa.RegionID]nodeid.NodeID)
			for _, mu := range mus {
				if mu.Ver.Def != memssa.CallMu {
					continue
				}
				id := b.g.AddNode(&Node{Kind: KindActualIn, Fn: fn, Loc: loc, Ver: mu.Ver, Callsite: b.locCS[loc]})
				b.actualIn[loc][mu.Ver.Region] = id
			}
		}
	}
}

// buildLocCallsite maps every call instruction's own ICFG location to
// its callsite id, scanned once up front so buildAddressTaken can
// stamp ActualIn/ActualOut nodes with the Callsite they belong to
// without re-walking the CFG per node.
func (b *builder) buildLocCallsite() map[nodeid.LocID]nodeid.CallsiteID {
	m := make(map[nodeid.LocID]nodeid.CallsiteID)
	for _, fn := range b.cfg.Functions() {
		for _, blk := range b.cfg.Blocks(fn) {
			for _, inst := range b.cfg.Instructions(blk) {
				if inst.Kind == frontend.InstCallDirect || inst.Kind == frontend.InstCallIndirect {
					m[inst.Loc] = inst.Callsite
				}
			}
		}
	}
	return m
}

// regionLabel returns the full object set of a MemSSA region, the
// label every indirect edge over that region carries (§4.5's "Label is
// meaningful only for Indirect edges: the set of object ids the edge
// carries pts for").
func (b *builder) regionLabel(region memssa.RegionID) bitset.PointsTo {
	if int(region) < len(b.mssa.Regions) {
		return b.mssa.Regions[region].Objs
	}
	return bitset.Empty
}

func ensureBlockMap(m map[frontend.BlockID]map[memssa.RegionID]nodeid.NodeID) map[frontend.BlockID]map[memssa.RegionID]nodeid.NodeID {
	if m == nil {
		return make(map[frontend.BlockID]map[memssa.RegionID]nodeid.NodeID)
	}
	return m
}

// wireIndirectIntra adds every intra-indirect edge: mu consumers
// (Load, FormalOut, ActualIn, MSSAPhi operands) read from whatever
// node's defOf entry matches the version they consume; store/ActualOut
// chis additionally read the version they overwrite, so a consumer
// downstream that never sees a strong update still observes the prior
// value (§4.5 "def(χ) → store").
func (b *builder) wireIndirectIntra() {
	for fn, fm := range b.mssa.Funcs {
		for loc, mus := range fm.Mus {
			for _, mu := range mus {
				dst, ok := b.muConsumerNode(loc, mu)
				if !ok {
					continue
				}
				src, ok := b.defOf[verKey{fn, mu.Ver.Region, mu.Ver.Version}]
				if !ok {
					continue
				}
				b.g.AddEdge(&Edge{Src: src, Dst: dst, Class: Indirect, Variant: IntraVariant, Label: b.regionLabel(mu.Ver.Region)})
			}
		}
		for loc, chis := range fm.Chis {
			for _, chi := range chis {
				dst, ok := b.chiOwnerNodeFor(loc, chi)
				if !ok {
					continue
				}
				src, ok := b.defOf[verKey{fn, chi.In.Region, chi.In.Version}]
				if !ok {
					continue
				}
				b.g.AddEdge(&Edge{Src: src, Dst: dst, Class: Indirect, Variant: IntraVariant, Label: b.regionLabel(chi.In.Region)})
			}
		}
		for block, phis := range fm.Phis {
			for region, phi := range phis {
				dst := b.phiNode[fn][block][region]
				for _, op := range phi.Operands {
					src, ok := b.defOf[verKey{fn, region, op.Version}]
					if !ok {
						continue
					}
					b.g.AddEdge(&Edge{Src: src, Dst: dst, Class: Indirect, Variant: IntraVariant, Label: b.regionLabel(region)})
				}
			}
		}
		for region, mu := range fm.RetMu {
			dst := b.formalOut[fn][region]
			src, ok := b.defOf[verKey{fn, region, mu.Ver.Version}]
			if ok {
				b.g.AddEdge(&Edge{Src: src, Dst: dst, Class: Indirect, Variant: IntraVariant, Label: b.regionLabel(region)})
			}
		}
	}
}

func (b *builder) muConsumerNode(loc nodeid.LocID, mu *memssa.MU) (nodeid.NodeID, bool) {
	if n, ok := b.topLevel[loc]; ok {
		return n, true
	}
	if n, ok := b.actualIn[loc][mu.Ver.Region]; ok {
		return n, true
	}
	return 0, false
}

func (b *builder) chiOwnerNodeFor(loc nodeid.LocID, chi *memssa.CHI) (nodeid.NodeID, bool) {
	if n, ok := b.topLevel[loc]; ok {
		return n, true
	}
	if n, ok := b.actualOut[loc][chi.In.Region]; ok {
		return n, true
	}
	return 0, false
}

// wireInterprocedural adds CallIndirect (ActualIn -> FormalIn) and
// RetIndirect (FormalOut -> ActualOut) edges for every direct call.
func (b *builder) wireInterprocedural() {
	for fn := range b.mssa.Funcs {
		for _, cs := range b.cfg.DirectCallers(fn) {
			loc, ok := b.callLoc(cs)
			if !ok {
				continue
			}
			for region, formalIn := range b.formalIn[fn] {
				if actualIn, ok := b.actualIn[loc][region]; ok {
					b.g.AddEdge(&Edge{Src: actualIn, Dst: formalIn, Class: Indirect, Variant: CallVariant, Callsite: cs, Label: b.regionLabel(region)})
				}
			}
			for region, formalOut := range b.formalOut[fn] {
				if actualOut, ok := b.actualOut[loc][region]; ok {
					b.g.AddEdge(&Edge{Src: formalOut, Dst: actualOut, Class: Indirect, Variant: RetVariant, Callsite: cs, Label: b.regionLabel(region)})
				}
			}
		}
	}
}

func (b *builder) callLoc(cs nodeid.CallsiteID) (nodeid.LocID, bool) {
	block := b.cfg.CallsiteBlock(cs)
	for _, inst := range b.cfg.Instructions(block) {
		if inst.Callsite == cs && (inst.Kind == frontend.InstCallDirect || inst.Kind == frontend.InstCallIndirect) {
			return inst.Loc, true
		}
	}
	return 0, false
}
