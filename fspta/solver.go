// Package fspta implements the flow-sensitive solver (component C6):
// worklist-driven propagation over the SVFG, strong/weak update at
// stores, and on-the-fly resolution of indirect callsites bounded by
// the Andersen call graph.
package fspta

import (
	"time"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/svfg"
	"github.com/svf-go/wpa/wpaerr"
)

// Result is the outcome of a completed Solve: the data-flow store
// (both the top-level/register map and the per-location IN/OUT maps)
// plus whichever indirect callsites got newly resolved along the way.
type Result struct {
	Store         *bitset.DataFlowStore
	ResolvedEdges []frontend.CallEdge
	Stats         Stats
}

// GetPts returns the final points-to set of a top-level (register) PAG
// value, the client-facing query §6 calls out for "alias/points-to
// queries against the flow-sensitive result".
func (r *Result) GetPts(pagID nodeid.NodeID) bitset.PointsTo {
	return r.Store.GetTLVPts(pagID)
}

// Solver runs the §4.6 fixpoint over a prebuilt SVFG.
type Solver struct {
	pag  frontend.PAG
	icfg frontend.CFG
	g    *svfg.Graph
	mssa *memssa.MemSSA
	cfg  Config

	store *bitset.DataFlowStore
	stats Stats
	log   func(format string, args ...interface{})

	// storeRegion maps a store instruction's location to the full set
	// of objects in the MemRegion its chi belongs to, so the IN-to-OUT
	// merge of untouched aliases (§4.6's "merge IN to OUT") has a
	// universe to iterate without rescanning MemSSA per node visit.
	storeRegion map[nodeid.LocID]bitset.PointsTo

	resolved map[frontend.CallEdge]bool
}

// New prepares a solver over an already-built SVFG; Build the SVFG
// (package svfg) and the MemSSA it was built from before calling this.
// icfg is the same frontend.CFG the SVFG was built from; the solver
// only needs it to resolve a newly discovered indirect callee's
// function object back to a FuncID (§4.6's connectCallerAndCallee).
func New(pag frontend.PAG, icfg frontend.CFG, g *svfg.Graph, mssa *memssa.MemSSA, cfg Config) (*Solver, error) {
	if cfg.MaxWorklistPasses <= 0 {
		return nil, wpaerr.NewConfig("fspta", "MaxWorklistPasses must be positive, got %d", cfg.MaxWorklistPasses)
	}

	s := &Solver{
		pag:         pag,
		icfg:        icfg,
		g:           g,
		mssa:        mssa,
		cfg:         cfg,
		store:       bitset.NewDataFlowStore(),
		storeRegion: make(map[nodeid.LocID]bitset.PointsTo),
	}

	for _, fm := range mssa.Funcs {
		for loc, chis := range fm.Chis {
			for _, chi := range chis {
				if chi.Out.Def == memssa.StoreChi {
					s.storeRegion[loc] = mssa.Regions[chi.Out.Region].Objs
				}
			}
		}
	}

	return s, nil
}

// SetLogger installs a debug sink; nil (the default) disables logging.
func (s *Solver) SetLogger(f func(format string, args ...interface{})) { s.log = f }

func (s *Solver) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log(format, args...)
	}
}

// Solve runs {SCCDetect(SVFG), drain worklist to empty} until a full
// pass neither changes any points-to set nor resolves a new indirect
// callsite (§4.6).
func (s *Solver) Solve() (*Result, error) {
	t0 := time.Now()

	for pass := 0; ; pass++ {
		if s.cfg.MaxWorklistPasses > 0 && pass >= s.cfg.MaxWorklistPasses {
			return nil, wpaerr.NewBudget("fspta", "exceeded %d outer-loop passes without converging", s.cfg.MaxWorklistPasses)
		}
		if err := s.checkBudget(t0); err != nil {
			s.stats.TimedOut = true
			return nil, err
		}

		changed := s.runWorklistPass()
		s.stats.OuterPasses++

		refined := s.updateCallGraph()
		s.logf("fspta: pass %d changed=%v refined=%v", pass, changed, refined)

		if !changed && !refined {
			break
		}
	}

	s.stats.SolveTime = time.Since(t0)

	resolved := make([]frontend.CallEdge, 0, len(s.resolved))
	for e := range s.resolved {
		resolved = append(resolved, e)
	}

	return &Result{Store: s.store, ResolvedEdges: resolved, Stats: s.stats}, nil
}

func (s *Solver) checkBudget(t0 time.Time) error {
	if s.cfg.TimeLimit > 0 && time.Since(t0) > s.cfg.TimeLimit {
		return wpaerr.NewBudget("fspta", "exceeded time limit %s", s.cfg.TimeLimit)
	}
	return nil
}

// runWorklistPass visits every SCC of the SVFG in the order gonum's
// Tarjan implementation emits them, repeating each component to local
// fixpoint before moving to the next (a cyclic component can only
// stabilize once every member has seen every other member's latest
// value, and nothing merges here the way cgraph's SCCs do, so a plain
// union-find collapse isn't available).
func (s *Solver) runWorklistPass() bool {
	changedAny := false
	for _, scc := range detectSCCs(s.g) {
		for {
			localChanged := false
			for _, id := range scc {
				if s.process(id) {
					localChanged = true
				}
			}
			if !localChanged {
				break
			}
			changedAny = true
		}
	}
	return changedAny
}

// process dispatches on a single SVFG node's kind, first pulling
// whatever new value its indirect in-edges carry (mu/chi propagation)
// and then running the node's own top-level rule, if it has one.
func (s *Solver) process(id nodeid.NodeID) bool {
	n := s.g.Node(id)
	if n == nil {
		return false
	}

	changed := s.pullIndirect(n)

	switch n.Kind {
	case svfg.KindAddr:
		if s.processAddr(n) {
			changed = true
		}
	case svfg.KindCopy:
		if s.processCopy(n) {
			changed = true
		}
	case svfg.KindGep:
		if s.processGep(n) {
			changed = true
		}
	case svfg.KindLoad:
		if s.processLoad(n) {
			changed = true
		}
	case svfg.KindStore:
		if s.processStore(n) {
			changed = true
		}
	case svfg.KindPhi, svfg.KindInterPhi:
		if s.processTopPhi(n) {
			changed = true
		}
	case svfg.KindActualOut:
		if s.processActualOut(n) {
			changed = true
		}
	}

	if changed {
		s.stats.NodesProcessed++
	}
	return changed
}

// pullIndirect implements the generic half of §4.6's edge rule
// ("Indirect edges with label L propagate each o ∈ L by
// DFIn[dst][o] ∪= DFOut[src][o] (or DFIn when src is not a store)"):
// every address-taken node's own value lives in its DFIn cell keyed by
// its own node id, except Store and ActualOut, whose DFOut cell holds
// the post-write value consumers must see.
func (s *Solver) pullIndirect(n *svfg.Node) bool {
	changed := false
	dst := nodeid.LocID(n.ID)
	for _, e := range s.g.InEdges(n.ID) {
		if e.Class != svfg.Indirect {
			continue
		}
		e.Label.ForEach(func(o nodeid.NodeID) {
			val := s.readValue(e.Src, o)
			if s.store.UnionIntoDFIn(dst, o, val) {
				changed = true
			}
		})
	}
	return changed
}

func (s *Solver) readValue(id nodeid.NodeID, obj nodeid.NodeID) bitset.PointsTo {
	n := s.g.Node(id)
	if n == nil {
		return bitset.Empty
	}
	loc := nodeid.LocID(n.ID)
	if n.Kind == svfg.KindStore || n.Kind == svfg.KindActualOut {
		return s.store.GetDFOut(loc, obj)
	}
	return s.store.GetDFIn(loc, obj)
}

// processAddr: pts(dst) |= {src}, substituting the field-insensitive id
// when src is a field-insensitive object.
func (s *Solver) processAddr(n *svfg.Node) bool {
	obj := n.Stmt.Src
	if s.isFieldInsensitiveOrConst(obj) {
		obj = s.pag.GetFIObjVar(obj)
	}
	return s.store.UpdateTLVPts(n.Stmt.Dst, bitset.NewPointsTo(obj))
}

// processCopy: pts(dst) |= pts(src).
func (s *Solver) processCopy(n *svfg.Node) bool {
	return s.store.UpdateTLVPts(n.Stmt.Dst, s.store.GetTLVPts(n.Stmt.Src))
}

// processGep computes pts(dst) from pts(src) and the gep's offset:
// field-insensitive or constant/variant sources fold to the
// field-insensitive object, everything else gets its derived field
// object (minted, if new, by the front-end).
func (s *Solver) processGep(n *svfg.Node) bool {
	changed := false
	s.store.GetTLVPts(n.Stmt.Src).ForEach(func(o nodeid.NodeID) {
		var g nodeid.NodeID
		if n.Stmt.Variant || s.isFieldInsensitiveOrConst(o) {
			g = s.pag.GetFIObjVar(o)
		} else {
			g = s.pag.GetGepObjVar(o, n.Stmt.Offset)
		}
		if s.store.UpdateTLVPts(n.Stmt.Dst, bitset.NewPointsTo(g)) {
			changed = true
		}
	})
	return changed
}

// processLoad: for each o in pts(q), pts(p) |= DFIn[l][o] (l is this
// node's own identity, where its incoming chi already landed via
// pullIndirect); field-insensitive objects expand to their fields too.
func (s *Solver) processLoad(n *svfg.Node) bool {
	changed := false
	loc := nodeid.LocID(n.ID)
	s.store.GetTLVPts(n.Stmt.Src).ForEach(func(o nodeid.NodeID) {
		for _, obj := range s.expandFI(o) {
			if s.store.UpdateTLVPts(n.Stmt.Dst, s.store.GetDFIn(loc, obj)) {
				changed = true
			}
		}
	})
	return changed
}

// processStore: for each o in pts(p), DFOut[l][o] |= pts(q); then
// merge IN to OUT for the rest of the region, strongly (replacing
// rather than unioning, and skipping the just-written object's stale
// IN) iff pts(p) is a singleton whose object is not heap, field
// insensitive, or a recursive-function local.
func (s *Solver) processStore(n *svfg.Node) bool {
	changed := false
	loc := nodeid.LocID(n.ID)
	ptrPts := s.store.GetTLVPts(n.Stmt.Dst)
	valPts := s.store.GetTLVPts(n.Stmt.Src)

	ptrPts.ForEach(func(o nodeid.NodeID) {
		for _, obj := range s.expandFI(o) {
			if s.store.UnionIntoDFOut(loc, obj, valPts) {
				changed = true
			}
		}
	})

	single, target := singlePointee(ptrPts)
	strong := single && s.qualifiesStrongUpdate(target)
	if strong {
		s.stats.StrongUpdates++
	} else {
		s.stats.WeakUpdates++
	}

	if region, ok := s.storeRegion[n.Loc]; ok {
		region.ForEach(func(o nodeid.NodeID) {
			if strong && o == target {
				return
			}
			if s.store.UpdateDFOutFromIn(loc, o, false) {
				changed = true
			}
		})
	}

	return changed
}

// processTopPhi merges every Direct predecessor's contributed PAG
// value into the phi's own (FormalParm's or ActualRet's original
// target, preserved through coalescing by optimize.go).
func (s *Solver) processTopPhi(n *svfg.Node) bool {
	changed := false
	for _, e := range s.g.InEdges(n.ID) {
		if e.Class != svfg.Direct {
			continue
		}
		pred := s.g.Node(e.Src)
		if pred == nil {
			continue
		}
		var predID nodeid.NodeID
		switch pred.Kind {
		case svfg.KindActualParm, svfg.KindFormalRet:
			predID = pred.Stmt.Src
		default:
			predID = pred.Stmt.Dst
		}
		if !predID.Valid() {
			continue
		}
		if s.store.UpdateTLVPts(n.Stmt.Dst, s.store.GetTLVPts(predID)) {
			changed = true
		}
	}
	return changed
}

// processActualOut merges whatever the callee's FormalOut (and this
// call's own chi.In, both already pulled in by pullIndirect) carried
// into its OUT cell: a call site's effect on a region is always
// modeled as a weak update, since no static information bounds which
// single object an arbitrary callee might have written.
func (s *Solver) processActualOut(n *svfg.Node) bool {
	changed := false
	loc := nodeid.LocID(n.ID)
	if int(n.Ver.Region) >= len(s.mssa.Regions) {
		return false
	}
	s.mssa.Regions[n.Ver.Region].Objs.ForEach(func(o nodeid.NodeID) {
		if s.store.UpdateDFOutFromIn(loc, o, false) {
			changed = true
		}
	})
	if changed {
		s.stats.WeakUpdates++
	}
	return changed
}

func (s *Solver) expandFI(o nodeid.NodeID) []nodeid.NodeID {
	if !s.pag.IsFieldInsensitive(o) {
		return []nodeid.NodeID{o}
	}
	out := []nodeid.NodeID{o}
	return append(out, s.pag.GetAllFieldsObjVars(o)...)
}

func (s *Solver) isFieldInsensitiveOrConst(o nodeid.NodeID) bool {
	return s.pag.IsFieldInsensitive(o) || s.pag.IsBlkObjOrConstantObj(o)
}

func (s *Solver) qualifiesStrongUpdate(o nodeid.NodeID) bool {
	return !s.pag.IsHeapMemObj(o) &&
		!s.pag.IsBlkObjOrConstantObj(o) &&
		!s.pag.IsFieldInsensitive(o) &&
		!s.pag.IsLocalVarInRecursiveFun(o)
}

func singlePointee(p bitset.PointsTo) (bool, nodeid.NodeID) {
	if p.Len() != 1 {
		return false, 0
	}
	var out nodeid.NodeID
	p.ForEach(func(o nodeid.NodeID) { out = o })
	return true, out
}

// updateCallGraph asks the front-end to resolve every indirect
// callsite against the current (flow-sensitive) points-to set of its
// function-pointer operand, then — for every newly discovered (cs,
// callee) pair — wires the callee's FormalIn/FormalOut nodes directly
// into this callsite's ActualIn/ActualOut nodes (§4.6's
// connectCallerAndCallee/updateConnectedNodes), so the next worklist
// pass's fresh SCC detection already sees the new edges and pulls
// through them like any statically resolved call. The Andersen call
// graph (C3, which resolves the same callsites on-the-fly) already
// bounds every callee this solver could discover, so it is never asked
// to connect a callee Andersen didn't already find a path to.
func (s *Solver) updateCallGraph() bool {
	if s.pag == nil {
		return false
	}
	changed := false
	for _, cs := range s.pag.IndirectCallsites() {
		fp := s.pag.FuncPtrNode(cs)
		if !fp.Valid() {
			continue
		}
		pts := s.store.GetTLVPts(fp)
		if pts.IsEmpty() {
			continue
		}
		var newEdges []frontend.CallEdge
		s.pag.ResolveIndCalls(cs, pts, &newEdges)
		for _, e := range newEdges {
			if !s.recordResolved(e) {
				continue
			}
			changed = true
			s.stats.ResolvedIndirect++
			s.connectCallerAndCallee(e)
		}
	}
	return changed
}

// connectCallerAndCallee resolves a freshly discovered callee object
// to its FuncID and wires the new SVFG edges for it. If the front-end
// can't resolve the object (no such FuncID, e.g. the callee came from
// a constant/external object the PAG never minted a function for), the
// edge is still recorded in Result.ResolvedEdges but contributes no
// new flow — a documented, conservative narrowing, not a crash.
func (s *Solver) connectCallerAndCallee(e frontend.CallEdge) {
	if s.icfg == nil {
		return
	}
	fn, ok := s.icfg.FuncAtObj(e.Callee)
	if !ok {
		return
	}
	svfg.ConnectIndirectCall(s.g, s.mssa, e.Callsite, fn)
}

func (s *Solver) recordResolved(e frontend.CallEdge) bool {
	if s.resolved == nil {
		s.resolved = make(map[frontend.CallEdge]bool)
	}
	if s.resolved[e] {
		return false
	}
	s.resolved[e] = true
	return true
}
