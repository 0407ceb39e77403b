package bitset

import "github.com/svf-go/wpa/nodeid"

type verKey struct {
	obj nodeid.NodeID
	ver nodeid.Version
}

// VersionedStore is the NodeID -> (Version -> PointsTo) backend the
// versioned flow-sensitive solver (vfspta) reads and writes, plus a
// flat top-level map shared with the plain data-flow store's
// register-variable role.
type VersionedStore struct {
	byVersion map[verKey]*mutable
	tlv       map[nodeid.NodeID]*mutable
}

// NewVersionedStore returns an empty versioned store.
func NewVersionedStore() *VersionedStore {
	return &VersionedStore{
		byVersion: make(map[verKey]*mutable),
		tlv:       make(map[nodeid.NodeID]*mutable),
	}
}

func (s *VersionedStore) slot(obj nodeid.NodeID, ver nodeid.Version) *mutable {
	k := verKey{obj, ver}
	m, ok := s.byVersion[k]
	if !ok {
		m = &mutable{}
		s.byVersion[k] = m
	}
	return m
}

// GetPts returns pts(obj @ ver).
func (s *VersionedStore) GetPts(obj nodeid.NodeID, ver nodeid.Version) PointsTo {
	if ver == nodeid.InvalidVersion {
		return Empty
	}
	return s.slot(obj, ver).snapshot()
}

// UnionPts sets pts(obj @ ver) |= src, reporting whether it grew.
func (s *VersionedStore) UnionPts(obj nodeid.NodeID, ver nodeid.Version, src PointsTo) bool {
	if ver == nodeid.InvalidVersion {
		return false
	}
	return s.slot(obj, ver).unionWith(&src)
}

// AddPts sets pts(obj @ ver) |= {o}.
func (s *VersionedStore) AddPts(obj nodeid.NodeID, ver nodeid.Version, o nodeid.NodeID) bool {
	if ver == nodeid.InvalidVersion {
		return false
	}
	return s.slot(obj, ver).add(o)
}

// UpdateTLVPts unions src into top-level variable k's points-to set.
func (s *VersionedStore) UpdateTLVPts(k nodeid.NodeID, src PointsTo) bool {
	m, ok := s.tlv[k]
	if !ok {
		m = &mutable{}
		s.tlv[k] = m
	}
	return m.unionWith(&src)
}

// GetTLVPts returns pts(k) for the top-level variable k.
func (s *VersionedStore) GetTLVPts(k nodeid.NodeID) PointsTo {
	m, ok := s.tlv[k]
	if !ok {
		return Empty
	}
	return m.snapshot()
}

// ClearPts empties pts(obj @ ver).
func (s *VersionedStore) ClearPts(obj nodeid.NodeID, ver nodeid.Version) {
	if m, ok := s.byVersion[verKey{obj, ver}]; ok {
		m.clear()
	}
}

// GetAllPts returns every tracked (obj, ver) pair's set, keyed by the
// object — used by dumpPts-style clients that want every version of
// an object's store, not just one.
func (s *VersionedStore) GetAllPts(liveOnly bool) map[nodeid.NodeID]map[nodeid.Version]PointsTo {
	out := make(map[nodeid.NodeID]map[nodeid.Version]PointsTo)
	for k, m := range s.byVersion {
		if liveOnly && m.bits.IsEmpty() {
			continue
		}
		byVer, ok := out[k.obj]
		if !ok {
			byVer = make(map[nodeid.Version]PointsTo)
			out[k.obj] = byVer
		}
		byVer[k.ver] = m.snapshot()
	}
	return out
}
