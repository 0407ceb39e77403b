package bitset

import "github.com/svf-go/wpa/nodeid"

// DiffStore is the flat store plus a per-node "diff" set: the pts
// added since the node's contents were last propagated along its
// outgoing copy edges. It is required by wave-diff propagation
// (andersen package) and must not be approximated by recomputing the
// difference from a single "current" set each step — that destroys
// the asymptotic wave-diff depends on.
type DiffStore struct {
	propagated map[nodeid.NodeID]*mutable // what has already been sent downstream
	diff       map[nodeid.NodeID]*mutable // what has arrived since then
}

// NewDiffStore returns an empty differential store.
func NewDiffStore() *DiffStore {
	return &DiffStore{
		propagated: make(map[nodeid.NodeID]*mutable),
		diff:       make(map[nodeid.NodeID]*mutable),
	}
}

func slot(m map[nodeid.NodeID]*mutable, k nodeid.NodeID) *mutable {
	v, ok := m[k]
	if !ok {
		v = &mutable{}
		m[k] = v
	}
	return v
}

// GetPts returns propagated(k) ∪ diff(k): the full current points-to
// set, as opposed to GetDiffPts which exposes only the unpropagated
// remainder.
func (s *DiffStore) GetPts(k nodeid.NodeID) PointsTo {
	full := slot(s.propagated, k).snapshot()
	d := slot(s.diff, k).snapshot()
	full.bits.UnionWith(&d.bits)
	return full
}

// GetDiffPts returns the set added since the last computeDiffPts/
// propagation cycle — the set a wave-diff pass actually needs to push
// along k's outgoing copy edges.
func (s *DiffStore) GetDiffPts(k nodeid.NodeID) PointsTo {
	return slot(s.diff, k).snapshot()
}

// AddPts adds o to pts(k)'s diff (new arrivals are diff until
// propagated), reporting whether the full set grew.
func (s *DiffStore) AddPts(k, o nodeid.NodeID) bool {
	if slot(s.propagated, k).has(o) {
		return false
	}
	return slot(s.diff, k).add(o)
}

// UnionPts adds src to pts(k)'s diff, reporting whether the full set
// grew.
func (s *DiffStore) UnionPts(k nodeid.NodeID, src PointsTo) bool {
	already := s.GetPts(k)
	novel := src.Difference(already)
	if novel.IsEmpty() {
		return false
	}
	return slot(s.diff, k).unionWith(&novel)
}

// ComputeDiffPts moves curr into propagated(k) and removes it from
// diff(k), keeping the two halves disjoint, so the next GetDiffPts(k)
// call returns only what is genuinely new relative to this snapshot.
func (s *DiffStore) ComputeDiffPts(k nodeid.NodeID, curr PointsTo) {
	prop := slot(s.propagated, k)
	novel := curr.Difference(prop.snapshot())
	prop.unionWith(&novel)
	d := slot(s.diff, k).snapshot()
	rest := d.Difference(curr)
	s.diff[k] = &mutable{}
	slot(s.diff, k).unionWith(&rest)
}

// UpdatePropaPtsMap performs propagated[dst] |= propagated[src], used
// when dst's rep absorbs src's propagation history across an SCC
// merge.
func (s *DiffStore) UpdatePropaPtsMap(src, dst nodeid.NodeID) bool {
	srcSnap := slot(s.propagated, src).snapshot()
	return slot(s.propagated, dst).unionWith(&srcSnap)
}

// ClearPropaPts clears propagated(k), forcing the next ComputeDiffPts
// to treat the whole current set as novel.
func (s *DiffStore) ClearPropaPts(k nodeid.NodeID) {
	if m, ok := s.propagated[k]; ok {
		m.clear()
	}
}

// ClearPts empties both the propagated and diff halves of pts(k).
func (s *DiffStore) ClearPts(k nodeid.NodeID) {
	if m, ok := s.propagated[k]; ok {
		m.clear()
	}
	if m, ok := s.diff[k]; ok {
		m.clear()
	}
}

// GetAllPts returns the full (propagated ∪ diff) set for every node.
func (s *DiffStore) GetAllPts(liveOnly bool) map[nodeid.NodeID]PointsTo {
	seen := make(map[nodeid.NodeID]bool)
	for k := range s.propagated {
		seen[k] = true
	}
	for k := range s.diff {
		seen[k] = true
	}
	out := make(map[nodeid.NodeID]PointsTo, len(seen))
	for k := range seen {
		full := s.GetPts(k)
		if liveOnly && full.IsEmpty() {
			continue
		}
		out[k] = full
	}
	return out
}
