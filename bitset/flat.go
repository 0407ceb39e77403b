package bitset

import "github.com/svf-go/wpa/nodeid"

// FlatStore is the NodeID -> PointsTo backend used by
// context-insensitive Andersen analysis when wave-diff propagation is
// disabled (the "diff-pts" option off).
type FlatStore struct {
	pts map[nodeid.NodeID]*mutable
}

// NewFlatStore returns an empty flat store.
func NewFlatStore() *FlatStore {
	return &FlatStore{pts: make(map[nodeid.NodeID]*mutable)}
}

func (s *FlatStore) slot(k nodeid.NodeID) *mutable {
	m, ok := s.pts[k]
	if !ok {
		m = &mutable{}
		s.pts[k] = m
	}
	return m
}

// GetPts returns a snapshot of pts(k).
func (s *FlatStore) GetPts(k nodeid.NodeID) PointsTo {
	m, ok := s.pts[k]
	if !ok {
		return Empty
	}
	return m.snapshot()
}

// UnionPts sets pts(k) |= src, reporting whether pts(k) grew.
func (s *FlatStore) UnionPts(k nodeid.NodeID, src PointsTo) bool {
	return s.slot(k).unionWith(&src)
}

// AddPts sets pts(k) |= {o}, reporting whether pts(k) grew.
func (s *FlatStore) AddPts(k, o nodeid.NodeID) bool {
	return s.slot(k).add(o)
}

// ClearPts empties pts(k).
func (s *FlatStore) ClearPts(k nodeid.NodeID) {
	if m, ok := s.pts[k]; ok {
		m.clear()
	}
}

// GetAllPts returns a snapshot of every stored points-to set, keyed by
// node. When
// liveOnly is true, keys with an empty set are skipped — callers pass
// false only for debugging dumps that want to see every node ever
// touched.
func (s *FlatStore) GetAllPts(liveOnly bool) map[nodeid.NodeID]PointsTo {
	out := make(map[nodeid.NodeID]PointsTo, len(s.pts))
	for k, m := range s.pts {
		if liveOnly && m.bits.IsEmpty() {
			continue
		}
		out[k] = m.snapshot()
	}
	return out
}
