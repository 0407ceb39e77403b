// Package vfspta implements the versioned flow-sensitive solver
// (component C7): the same top-level value flow as fspta, but memory
// reads/writes are modeled as reads/writes on (object, version) pairs
// addressed through a version-reliance graph, rather than through
// per-location IN/OUT maps.
package vfspta

import (
	"time"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/svfg"
	"github.com/svf-go/wpa/wpaerr"
)

// Result is the outcome of a completed Solve.
type Result struct {
	Store *bitset.VersionedStore
	Stats Stats
}

// GetPts returns the final points-to set of a top-level PAG value.
func (r *Result) GetPts(pagID nodeid.NodeID) bitset.PointsTo {
	return r.Store.GetTLVPts(pagID)
}

// Solver runs the §4.7 fixpoint over a prebuilt SVFG, seeded by a
// whole-program (Andersen, C3) points-to approximation for
// pre-labelling.
type Solver struct {
	pag frontend.PAG
	g   *svfg.Graph
	cfg Config

	anderPts func(nodeid.NodeID) bitset.PointsTo

	label *labelling
	rel   *reliance
	store *bitset.VersionedStore
	stats Stats
	log   func(format string, args ...interface{})
}

// New prepares a solver. anderPts must be the finished Andersen (C3)
// result: pre-labelling needs it to decide which objects a store's
// pointer may target (§4.7 "for each o in ander.pts(p)").
func New(pag frontend.PAG, g *svfg.Graph, anderPts func(nodeid.NodeID) bitset.PointsTo, cfg Config) (*Solver, error) {
	if cfg.MaxIterations <= 0 {
		return nil, wpaerr.NewConfig("vfspta", "MaxIterations must be positive, got %d", cfg.MaxIterations)
	}
	return &Solver{
		pag:      pag,
		g:        g,
		cfg:      cfg,
		anderPts: anderPts,
		store:    bitset.NewVersionedStore(),
	}, nil
}

// SetLogger installs a debug sink; nil (the default) disables logging.
func (s *Solver) SetLogger(f func(format string, args ...interface{})) { s.log = f }

func (s *Solver) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log(format, args...)
	}
}

// Solve runs pre-labelling, meld-labelling, reliance-graph
// construction, and then the points-to propagation worklist to a
// fixpoint.
func (s *Solver) Solve() (*Result, error) {
	t0 := time.Now()

	s.label = computeLabelling(s.g, s.pag, s.anderPts)
	s.rel = buildReliance(s.g, s.label)
	s.stats.Versions = len(s.label.version)

	worklist := make([]nodeid.NodeID, 0, len(s.g.Nodes()))
	queued := make(map[nodeid.NodeID]bool)
	push := func(id nodeid.NodeID) {
		if !queued[id] {
			queued[id] = true
			worklist = append(worklist, id)
		}
	}
	for _, n := range s.g.Nodes() {
		push(n.ID)
	}

	iterations := 0
	for len(worklist) > 0 {
		iterations++
		if iterations > s.cfg.MaxIterations {
			return nil, wpaerr.NewBudget("vfspta", "exceeded %d worklist iterations without converging", s.cfg.MaxIterations)
		}
		if s.cfg.TimeLimit > 0 && time.Since(t0) > s.cfg.TimeLimit {
			s.stats.TimedOut = true
			return nil, wpaerr.NewBudget("vfspta", "exceeded time limit %s", s.cfg.TimeLimit)
		}

		id := worklist[0]
		worklist = worklist[1:]
		queued[id] = false

		grown := s.process(id)
		s.stats.NodesProcessed++

		for len(grown) > 0 {
			ov := grown[len(grown)-1]
			grown = grown[:len(grown)-1]
			for _, vp := range s.rel.versionReliance[ov] {
				if s.store.UnionPts(ov.obj, vp, s.store.GetPts(ov.obj, ov.ver)) {
					grown = append(grown, objVer{ov.obj, vp})
				}
			}
			s.enqueueReliant(ov, push)
		}

		// A direct (top-level) successor may need re-evaluation too,
		// since Addr/Copy/Gep/Phi propagate on the same Direct edges
		// fspta uses.
		for _, e := range s.g.OutEdges(id) {
			if e.Class == svfg.Direct {
				push(e.Dst)
			}
		}
	}

	s.stats.SolveTime = time.Since(t0)
	return &Result{Store: s.store, Stats: s.stats}, nil
}

func (s *Solver) enqueueReliant(ov objVer, push func(nodeid.NodeID)) {
	for _, loc := range s.rel.stmtReliance[ov] {
		push(nodeid.NodeID(loc))
		s.stats.Reprocessed++
	}
}

// process dispatches a single SVFG node, returning the (obj, version)
// pairs whose points-to set grew as a result (so Solve can propagate
// that growth along the reliance graph).
func (s *Solver) process(id nodeid.NodeID) []objVer {
	n := s.g.Node(id)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case svfg.KindAddr:
		s.processAddr(n)
	case svfg.KindCopy:
		s.processCopy(n)
	case svfg.KindGep:
		s.processGep(n)
	case svfg.KindLoad:
		s.processLoad(n)
	case svfg.KindStore:
		return s.processStore(n)
	case svfg.KindPhi, svfg.KindInterPhi:
		s.processTopPhi(n)
	}
	return nil
}

func (s *Solver) processAddr(n *svfg.Node) {
	obj := n.Stmt.Src
	if s.pag.IsFieldInsensitive(obj) || s.pag.IsBlkObjOrConstantObj(obj) {
		obj = s.pag.GetFIObjVar(obj)
	}
	s.store.UpdateTLVPts(n.Stmt.Dst, bitset.NewPointsTo(obj))
}

func (s *Solver) processCopy(n *svfg.Node) {
	s.store.UpdateTLVPts(n.Stmt.Dst, s.store.GetTLVPts(n.Stmt.Src))
}

func (s *Solver) processGep(n *svfg.Node) {
	s.store.GetTLVPts(n.Stmt.Src).ForEach(func(o nodeid.NodeID) {
		var g nodeid.NodeID
		if n.Stmt.Variant || s.pag.IsFieldInsensitive(o) || s.pag.IsBlkObjOrConstantObj(o) {
			g = s.pag.GetFIObjVar(o)
		} else {
			g = s.pag.GetGepObjVar(o, n.Stmt.Offset)
		}
		s.store.UpdateTLVPts(n.Stmt.Dst, bitset.NewPointsTo(g))
	})
}

// processLoad implements "p = *q at l: pts(p) |= pts(o @ consume[l][o])
// for each o in pts(q)".
func (s *Solver) processLoad(n *svfg.Node) {
	loc := nodeid.LocID(n.ID)
	s.store.GetTLVPts(n.Stmt.Src).ForEach(func(o nodeid.NodeID) {
		v := s.label.consumeVersion(loc, o)
		s.store.UpdateTLVPts(n.Stmt.Dst, s.store.GetPts(o, v))
	})
}

// processStore implements "*p = q at l: pts(o @ yield[l][o]) |= pts(q)
// for each o in pts(p)". Strong vs. weak update is implicit in version
// identity here: a strongly-updated object's yield version is never
// the target of a reliance edge from its own stale predecessor version
// (the meld-labelling pass only melds into non-delta consumers along
// actual SVFG edges, and a strong-update target's old version has no
// such edge into the new one), so there is no separate "skip the
// strong-update target" step to perform beyond what the reliance graph
// already encodes.
func (s *Solver) processStore(n *svfg.Node) []objVer {
	var grown []objVer
	loc := nodeid.LocID(n.ID)
	valPts := s.store.GetTLVPts(n.Stmt.Src)

	s.store.GetTLVPts(n.Stmt.Dst).ForEach(func(o nodeid.NodeID) {
		v := s.label.yieldVersion(loc, o)
		if v == nodeid.InvalidVersion {
			return
		}
		if s.store.UnionPts(o, v, valPts) {
			grown = append(grown, objVer{o, v})
		}
	})
	return grown
}

func (s *Solver) processTopPhi(n *svfg.Node) {
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
		s.store.UpdateTLVPts(n.Stmt.Dst, s.store.GetTLVPts(predID))
	}
}
