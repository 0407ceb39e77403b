package memssa

import (
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
)

// MemSSA is the immutable result of one build (§3 "MemSSA is built
// once per Andersen result, immutable thereafter"): the region
// partition plus every function's mu/chi/phi tables. C5 (svfg) walks
// this structure read-only.
type MemSSA struct {
	Regions   []*MemRegion
	ObjRegion map[nodeid.NodeID]RegionID
	Funcs     map[frontend.FuncID]*FuncMSSA
}

// Region returns the MemRegion owning base object obj, or nil if obj
// is never touched by a load/store/call pointer operand.
func (m *MemSSA) Region(obj nodeid.NodeID) *MemRegion {
	r, ok := m.ObjRegion[obj]
	if !ok {
		return nil
	}
	return m.Regions[r]
}

// Func returns fn's MemSSA tables, or nil if fn is unreachable (and so
// was never visited by Build).
func (m *MemSSA) Func(fn frontend.FuncID) *FuncMSSA { return m.Funcs[fn] }

// Build runs the full C4 pipeline: partition the heap into regions,
// then per reachable function run createMUCHI, insertPHI and
// SSARename in sequence (§4.4).
func Build(cfg frontend.CFG, pag frontend.PAG, pts PtsOf, strategy Partition) (*MemSSA, error) {
	regions, objToRegion := BuildRegions(cfg, pag, pts, strategy)

	m := &MemSSA{
		Regions:   regions,
		ObjRegion: objToRegion,
		Funcs:     make(map[frontend.FuncID]*FuncMSSA),
	}

	for _, fn := range cfg.Functions() {
		if !cfg.Reachable(fn) {
			continue
		}
		fm := createMUCHI(cfg, pag, pts, objToRegion, fn)
		insertPHI(cfg, fn, fm)
		if err := SSARename(cfg, fn, fm); err != nil {
			return nil, err
		}
		m.Funcs[fn] = fm
	}

	return m, nil
}
