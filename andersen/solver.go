// Package andersen implements the inclusion-based (Andersen-style)
// constraint solver, component C3: constraint-graph construction from
// PAG, the wave-diff worklist discipline, PWC/size-triggered
// collapsing, and on-the-fly call-graph refinement.
package andersen

import (
	"fmt"
	"time"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/cgraph"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/wpaerr"
)

// GepObjRecord names a GEP object node created during solving, for the
// on-disk format in §6 ("lines describing derived GEP object nodes").
type GepObjRecord struct {
	Gep    nodeid.NodeID
	Base   nodeid.NodeID
	Offset uint32
}

// Result is the immutable outcome of a completed Solve: the final
// points-to relation (held in Store), the set of GEP objects minted
// along the way, and the indirect call edges resolved on the fly
// (ResolvedEdges). Solve does not fill CallGraph.
type Result struct {
	Graph         *cgraph.Graph
	Store         ptsStore
	GepObjs       []GepObjRecord
	ResolvedEdges []frontend.CallEdge
	CallGraph     *frontend.CallGraphView
	Stats         Stats
}

// GetPts returns pts(n), resolving n to its constraint-graph
// representative first.
func (r *Result) GetPts(n nodeid.NodeID) bitset.PointsTo {
	return r.Store.GetPts(r.Graph.Find(n))
}

// Solver runs the Andersen fixpoint over a constraint graph built from
// a frontend.PAG.
type Solver struct {
	pag    frontend.PAG
	graph  *cgraph.Graph
	store  ptsStore
	cfg    Config
	stats  Stats
	log    func(format string, args ...interface{})

	gepChildren map[nodeid.NodeID][]nodeid.NodeID // base -> derived gep objects, for collapseField
	gepObjs     []GepObjRecord
	fieldIns    map[nodeid.NodeID]bool
	resolved    map[frontend.CallEdge]bool
}

// New builds the constraint graph from pag's statements and returns a
// solver ready to run.
func New(pag frontend.PAG, cfg Config) (*Solver, error) {
	if cfg.CollapseThreshold <= 0 {
		return nil, wpaerr.NewConfig("andersen", "CollapseThreshold must be positive, got %d", cfg.CollapseThreshold)
	}

	g := cgraph.New(pag.NumNodes())
	var store ptsStore
	if cfg.DiffPts {
		store = newDiffAdapter()
	} else {
		store = newFlatAdapter()
	}

	s := &Solver{
		pag:         pag,
		graph:       g,
		store:       store,
		cfg:         cfg,
		gepChildren: make(map[nodeid.NodeID][]nodeid.NodeID),
		fieldIns:    make(map[nodeid.NodeID]bool),
	}

	t0 := time.Now()
	for _, st := range pag.Statements() {
		s.translate(st)
	}
	s.stats.ConstraintGenTime = time.Since(t0)
	return s, nil
}

// SetLogger installs a debug sink; nil (the default) disables logging,
// matching the teacher's "if a.log != nil" convention.
func (s *Solver) SetLogger(f func(format string, args ...interface{})) { s.log = f }

func (s *Solver) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log(format, args...)
	}
}

func (s *Solver) translate(st frontend.Stmt) {
	switch st.Kind {
	case frontend.StmtAddr:
		s.graph.AddAddr(st.Dst, st.Src)
	case frontend.StmtCopy:
		s.graph.AddCopy(st.Dst, st.Src)
	case frontend.StmtGep:
		s.graph.AddGep(st.Dst, st.Src, st.Offset, st.Variant)
	case frontend.StmtLoad:
		s.graph.AddLoad(st.Dst, st.Src)
	case frontend.StmtStore:
		s.graph.AddStore(st.Dst, st.Src)
	default:
		// StmtCall/StmtRet are resolved dynamically by on-the-fly
		// call-graph refinement, not translated up front.
	}
}

// Solve runs the wave-diff fixpoint to completion: repeatedly detect
// SCCs over copy+gep edges, process loads/stores and propagate diffs
// in topological order of the SCC condensation (upstream first), until a full
// pass adds no new points-to, no new copy edge and resolves no new
// indirect callee.
func (s *Solver) Solve() (*Result, error) {
	t0 := time.Now()

	if err := s.initAddrEdges(); err != nil {
		return nil, err
	}

	for {
		changed, err := s.outerPass()
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}

	s.stats.SolveTime = time.Since(t0)

	resolved := make([]frontend.CallEdge, 0, len(s.resolved))
	for e := range s.resolved {
		resolved = append(resolved, e)
	}

	return &Result{
		Graph:          s.graph,
		Store:          s.store,
		GepObjs:        s.gepObjs,
		ResolvedEdges:  resolved,
		Stats:          s.stats,
	}, nil
}

func (s *Solver) initAddrEdges() error {
	for id := 1; id < s.graph.NumNodes(); id++ {
		n := s.graph.Node(nodeid.NodeID(id))
		for obj := range n.AddrIn {
			if s.store.AddPts(n.ID, obj) {
				s.stats.AddrProcessed++
			}
		}
	}
	return nil
}

// outerPass runs one {SCC detect, drain worklist} cycle and reports
// whether anything changed.
func (s *Solver) outerPass() (bool, error) {
	changed := false

	sccs := s.graph.DetectSCCs(cgraph.Direct)
	s.stats.SCCDetections++

	order := s.reverseTopological(sccs)

	for _, scc := range order {
		if len(scc) > 1 {
			res := s.graph.MergeSCC(scc, func(dst, src nodeid.NodeID) {
				srcPts := s.store.GetPts(src)
				if s.store.UnionPts(dst, srcPts) {
					changed = true
				}
				s.store.AbsorbPropagation(dst, src)
			})
			if res.PWC {
				s.stats.PWCsMerged++
				s.markFieldInsensitive(res.Rep)
			}
			changed = true
		}

		rep := scc[0]
		for _, m := range scc {
			if s.graph.Find(m) == m {
				rep = m
			}
		}

		if s.processLoadsStores(rep) {
			changed = true
		}
		if s.propagateCopies(rep) {
			changed = true
		}
		if s.maybeCollapse(rep) {
			changed = true
		}
	}

	if s.pag != nil {
		if s.resolveIndirectCalls() {
			changed = true
		}
	}

	return changed, nil
}

// reverseTopological orders SCCs so that a rep's predecessors (in the
// Direct-edge condensation) are processed before it — required so a
// diff computed this round has already received everything upstream.
// DetectSCCs emits components in Tarjan's completion order, which puts
// every component after all of its successors, so this helper returns
// that list reversed.
func (s *Solver) reverseTopological(sccs [][]nodeid.NodeID) [][]nodeid.NodeID {
	out := make([][]nodeid.NodeID, len(sccs))
	for i, scc := range sccs {
		out[len(sccs)-1-i] = scc
	}
	return out
}

func (s *Solver) markFieldInsensitive(rep nodeid.NodeID) {
	if s.fieldIns[rep] {
		return
	}
	s.fieldIns[rep] = true
	s.graph.Node(rep).FieldInsensitive = true
	s.collapseField(rep)
}

// processLoadsStores applies the Load and Store rules for rep: for
// each o in pts(rep) where rep is used as a pointer operand, add the
// copy edges the rule implies (these may themselves be new constraint
// edges, which is why loads/stores are processed before diff
// propagation each round). A new edge is seeded with the source's full
// current set, since the source's earlier waves never travelled it.
func (s *Solver) processLoadsStores(rep nodeid.NodeID) bool {
	changed := false
	n := s.graph.Node(rep)
	pts := s.store.GetPts(rep)

	if len(n.LoadOut) > 0 {
		pts.ForEach(func(o nodeid.NodeID) {
			for dst := range n.LoadOut {
				if s.graph.AddCopy(dst, o) {
					s.store.UnionPts(s.graph.Find(dst), s.store.GetPts(s.graph.Find(o)))
					changed = true
				}
			}
			s.stats.LoadProcessed++
		})
	}

	if len(n.StoreOut) > 0 {
		pts.ForEach(func(o nodeid.NodeID) {
			for src := range n.StoreOut {
				if s.graph.AddCopy(o, src) {
					s.store.UnionPts(s.graph.Find(o), s.store.GetPts(s.graph.Find(src)))
					changed = true
				}
			}
			s.stats.StoreProcessed++
		})
	}

	return changed
}

// propagateCopies processes rep's Direct (copy+gep) out-edges: plain
// copies union diff(rep) into the destination; Gep edges translate
// through getGepObjVar/getFIObjVar first.
func (s *Solver) propagateCopies(rep nodeid.NodeID) bool {
	changed := false
	n := s.graph.Node(rep)
	diff := s.store.GetDiff(rep)
	if diff.IsEmpty() {
		return false
	}
	// Marked propagated before sending, so bits that reach rep while its
	// own edges are walked stay in diff for the next round.
	s.store.FinishWave(rep)

	for dst, attr := range n.DirectOut {
		if attr == nil {
			if s.store.UnionPts(dst, diff) {
				changed = true
				s.stats.CopyProcessed++
			}
			continue
		}

		if attr.Variant {
			diff.ForEach(func(o nodeid.NodeID) {
				s.markFieldInsensitive(s.graph.Find(o))
				fi := s.fiObj(o)
				if s.store.AddPts(dst, fi) {
					changed = true
				}
			})
			s.stats.GepProcessed++
			continue
		}

		diff.ForEach(func(o nodeid.NodeID) {
			if s.isFieldInsensitiveOrConst(o) {
				if s.store.AddPts(dst, o) {
					changed = true
				}
				return
			}
			g := s.gepObj(o, attr.Offset)
			if s.store.AddPts(dst, g) {
				changed = true
			}
		})
		s.stats.GepProcessed++
	}

	s.stats.observePtsSize(s.store.GetPts(rep).Len())
	return changed
}

func (s *Solver) isFieldInsensitiveOrConst(o nodeid.NodeID) bool {
	if s.fieldIns[s.graph.Find(o)] {
		return true
	}
	if s.pag != nil {
		return s.pag.IsFieldInsensitive(o) || s.pag.IsBlkObjOrConstantObj(o)
	}
	return false
}

func (s *Solver) gepObj(base nodeid.NodeID, offset uint32) nodeid.NodeID {
	var id nodeid.NodeID
	if s.pag != nil {
		id = s.pag.GetGepObjVar(base, offset)
	} else {
		id = s.mintSynthetic()
	}
	s.graph.Grow(int(id) + 1)
	s.gepChildren[base] = append(s.gepChildren[base], id)
	s.gepObjs = append(s.gepObjs, GepObjRecord{Gep: id, Base: base, Offset: offset})
	return id
}

func (s *Solver) fiObj(base nodeid.NodeID) nodeid.NodeID {
	if s.pag != nil {
		return s.pag.GetFIObjVar(base)
	}
	return base
}

var syntheticCounter nodeid.NodeID = 1 << 24

// mintSynthetic is used only when no frontend.PAG is wired (unit tests
// that exercise the solver directly against a hand-built cgraph.Graph);
// a real PAG always owns GEP object identity per §6's "reader must
// create any missing GEP object nodes ... with exactly the same id".
func (s *Solver) mintSynthetic() nodeid.NodeID {
	syntheticCounter++
	return syntheticCounter
}

// collapseField folds every GEP-derived field of base's pts back into
// base's own entry, per the collapseNodePts rule triggered by PWC
// merge or size-threshold crossing (§4.3 "Collapsing").
func (s *Solver) collapseField(base nodeid.NodeID) {
	for _, child := range s.gepChildren[base] {
		childPts := s.store.GetPts(child)
		s.store.UnionPts(base, childPts)
		s.store.ClearPts(child)
	}
}

func (s *Solver) maybeCollapse(rep nodeid.NodeID) bool {
	if s.fieldIns[rep] {
		return false
	}
	if s.store.GetPts(rep).Len() <= s.cfg.CollapseThreshold {
		return false
	}
	s.markFieldInsensitive(rep)
	return true
}

// resolveIndirectCalls asks the front-end to resolve every indirect
// callsite against the current points-to set of its function-pointer
// operand, bounding the Andersen call graph that the flow-sensitive
// solvers (§4.6) later refine indirect edges within. Each freshly
// resolved (cs, callee) pair becomes a copy edge from the callee
// object into the callsite's target node, so a later propagation round
// can flow it onward exactly like a statically resolved call.
func (s *Solver) resolveIndirectCalls() bool {
	changed := false
	for _, cs := range s.pag.IndirectCallsites() {
		fp := s.pag.FuncPtrNode(cs)
		if !fp.Valid() {
			continue
		}
		pts := s.store.GetPts(s.graph.Find(fp))
		if pts.IsEmpty() {
			continue
		}

		var newEdges []frontend.CallEdge
		s.pag.ResolveIndCalls(cs, pts, &newEdges)
		for _, e := range newEdges {
			if s.recordResolvedCall(e) {
				changed = true
			}
		}
	}
	return changed
}

func (s *Solver) recordResolvedCall(e frontend.CallEdge) bool {
	if s.resolved == nil {
		s.resolved = make(map[frontend.CallEdge]bool)
	}
	if s.resolved[e] {
		return false
	}
	s.resolved[e] = true
	return true
}

func (s *Solver) String() string {
	return fmt.Sprintf("andersen.Solver{nodes=%d}", s.graph.NumNodes())
}
