// Package memssa implements component C4: partitioning the
// address-taken heap into memory regions, annotating loads, stores and
// calls with mu (use) and chi (def) operators, and renaming those
// operators into SSA form over the front-end's dominator tree.
package memssa

import (
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
)

// RegionID densely identifies a MemRegion within one MemSSA build.
type RegionID uint32

// Partition selects how base objects are grouped into MemRegions
// before mu/chi insertion (§4.4 "one of three partitioning
// strategies").
type Partition int

const (
	// Distinct gives every base object its own singleton region: the
	// most precise, most expensive partitioning.
	Distinct Partition = iota
	// IntraDisjoint unions every base object touched together by some
	// load/store/call. The union-find is shared by all functions, so
	// regions of different functions are not kept apart and the
	// partition is the same one InterDisjoint produces.
	IntraDisjoint
	// InterDisjoint unions objects touched together anywhere in the
	// program, the coarsest and cheapest partitioning.
	InterDisjoint
)

// MemRegion owns the set of base objects (per Andersen's pts results)
// that this MemSSA build treats as one scalar memory location.
type MemRegion struct {
	ID   RegionID
	Objs bitset.PointsTo
}

// regionSet is the region partitioner's working state: a union-find
// over base-object ids (for Intra/InterDisjoint) that collapses into a
// dense RegionID assignment once partitioning finishes.
type regionSet struct {
	parent map[nodeid.NodeID]nodeid.NodeID
}

func newRegionSet() *regionSet { return &regionSet{parent: make(map[nodeid.NodeID]nodeid.NodeID)} }

func (r *regionSet) find(o nodeid.NodeID) nodeid.NodeID {
	p, ok := r.parent[o]
	if !ok {
		r.parent[o] = o
		return o
	}
	if p == o {
		return o
	}
	root := r.find(p)
	r.parent[o] = root
	return root
}

func (r *regionSet) union(a, b nodeid.NodeID) {
	ra, rb := r.find(a), r.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	r.parent[rb] = ra
}

// PtsOf is the narrow capability region-building needs from the
// Andersen result: the final points-to set of a pointer node, resolved
// through the constraint graph's representative.
type PtsOf func(n nodeid.NodeID) bitset.PointsTo

// BuildRegions partitions every base object reachable by some pointer
// operand of a load, store, or call into MemRegions according to
// strategy, returning the regions plus a lookup from base object to
// owning RegionID.
func BuildRegions(cfg frontend.CFG, pag frontend.PAG, pts PtsOf, strategy Partition) ([]*MemRegion, map[nodeid.NodeID]RegionID) {
	rs := newRegionSet()
	touch := func(objs bitset.PointsTo) []nodeid.NodeID {
		var bases []nodeid.NodeID
		objs.ForEach(func(o nodeid.NodeID) {
			bases = append(bases, pag.GetBaseObj(o))
		})
		return bases
	}

	for _, fn := range cfg.Functions() {
		if !cfg.Reachable(fn) {
			continue
		}
		for _, b := range cfg.Blocks(fn) {
			for _, inst := range cfg.Instructions(b) {
				switch inst.Kind {
				case frontend.InstLoad, frontend.InstStore:
				case frontend.InstCallDirect, frontend.InstCallIndirect:
					if !inst.Ptr.Valid() {
						continue
					}
				default:
					continue
				}
				bases := touch(pts(inst.Ptr))
				for _, o := range bases {
					rs.find(o) // register
				}
				switch strategy {
				case Distinct:
					// each object stays its own region: no unioning.
				case IntraDisjoint, InterDisjoint:
					for i := 1; i < len(bases); i++ {
						rs.union(bases[0], bases[i])
					}
				}
			}
		}
	}

	// rs above is shared by every function, so objects touched together
	// anywhere in the program already share a region and IntraDisjoint
	// yields the same partition as InterDisjoint. The InterDisjoint pass
	// below only ever unions an object with itself and changes nothing.
	if strategy == InterDisjoint {
		seenBy := make(map[nodeid.NodeID]nodeid.NodeID) // base -> first representative seen
		for _, fn := range cfg.Functions() {
			if !cfg.Reachable(fn) {
				continue
			}
			for _, b := range cfg.Blocks(fn) {
				for _, inst := range cfg.Instructions(b) {
					if inst.Kind != frontend.InstLoad && inst.Kind != frontend.InstStore {
						continue
					}
					for _, o := range touch(pts(inst.Ptr)) {
						if prev, ok := seenBy[o]; ok {
							rs.union(prev, o)
						} else {
							seenBy[o] = o
						}
					}
				}
			}
		}
	}

	// Collapse into dense RegionIDs.
	repToRegion := make(map[nodeid.NodeID]RegionID)
	objToRegion := make(map[nodeid.NodeID]RegionID)
	var regions []*MemRegion
	for o := range rs.parent {
		rep := rs.find(o)
		rid, ok := repToRegion[rep]
		if !ok {
			rid = RegionID(len(regions))
			repToRegion[rep] = rid
			regions = append(regions, &MemRegion{ID: rid})
		}
		objToRegion[o] = rid
	}
	// Materialize each region's object set now that membership is final.
	for o, rid := range objToRegion {
		merged := regions[rid].Objs.Union(bitset.NewPointsTo(o))
		regions[rid].Objs = merged
	}

	return regions, objToRegion
}
