package bitset

import "github.com/svf-go/wpa/nodeid"

type dfKey struct {
	loc nodeid.LocID
	obj nodeid.NodeID
}

// DataFlowStore is the (LocID, NodeID) -> PointsTo backend the
// flow-sensitive solver (fspta) reads and writes: an IN map and an OUT
// map per SVFG location, plus a flat top-level-variable map for
// register-like (non-address-taken) pointer values.
//
// Every OUT write marks the touched (loc, obj) pair dirty; callers
// read that bitmap via DirtyOutVars to know which downstream edges
// need re-enqueuing, then clear it with ClearAllDFOutUpdatedVar once
// they have drained it.
type DataFlowStore struct {
	in  map[dfKey]*mutable
	out map[dfKey]*mutable
	tlv map[nodeid.NodeID]*mutable

	dirtyOut map[nodeid.LocID]map[nodeid.NodeID]bool
}

// NewDataFlowStore returns an empty data-flow store.
func NewDataFlowStore() *DataFlowStore {
	return &DataFlowStore{
		in:       make(map[dfKey]*mutable),
		out:      make(map[dfKey]*mutable),
		tlv:      make(map[nodeid.NodeID]*mutable),
		dirtyOut: make(map[nodeid.LocID]map[nodeid.NodeID]bool),
	}
}

func (s *DataFlowStore) slotIn(loc nodeid.LocID, obj nodeid.NodeID) *mutable {
	k := dfKey{loc, obj}
	m, ok := s.in[k]
	if !ok {
		m = &mutable{}
		s.in[k] = m
	}
	return m
}

func (s *DataFlowStore) slotOut(loc nodeid.LocID, obj nodeid.NodeID) *mutable {
	k := dfKey{loc, obj}
	m, ok := s.out[k]
	if !ok {
		m = &mutable{}
		s.out[k] = m
	}
	return m
}

func (s *DataFlowStore) markDirty(loc nodeid.LocID, obj nodeid.NodeID) {
	m, ok := s.dirtyOut[loc]
	if !ok {
		m = make(map[nodeid.NodeID]bool)
		s.dirtyOut[loc] = m
	}
	m[obj] = true
}

// GetDFIn returns a snapshot of IN[loc][obj].
func (s *DataFlowStore) GetDFIn(loc nodeid.LocID, obj nodeid.NodeID) PointsTo {
	return s.slotIn(loc, obj).snapshot()
}

// GetDFOut returns a snapshot of OUT[loc][obj].
func (s *DataFlowStore) GetDFOut(loc nodeid.LocID, obj nodeid.NodeID) PointsTo {
	return s.slotOut(loc, obj).snapshot()
}

// UpdateDFInFromIn sets IN[dst][obj] |= IN[src][obj], the rule used to
// propagate along a direct intra-procedural value-flow edge whose
// source is itself a use (mu), not a def (chi).
func (s *DataFlowStore) UpdateDFInFromIn(src, dst nodeid.LocID, obj nodeid.NodeID) bool {
	srcSnap := s.slotIn(src, obj).snapshot()
	return s.slotIn(dst, obj).unionWith(&srcSnap)
}

// UpdateDFInFromOut sets IN[dst][obj] |= OUT[src][obj], the rule used
// to propagate along an indirect value-flow edge from a chi (def) to
// its consumer.
func (s *DataFlowStore) UpdateDFInFromOut(src, dst nodeid.LocID, obj nodeid.NodeID) bool {
	srcSnap := s.slotOut(src, obj).snapshot()
	changed := s.slotIn(dst, obj).unionWith(&srcSnap)
	return changed
}

// UpdateDFOutFromIn merges IN[loc][obj] into OUT[loc][obj]. When
// strongUpdate is true (the store's single pointee qualifies for a
// strong update, §4.6), OUT is replaced by IN rather than unioned with
// it, so stale pointees from before the store do not survive.
func (s *DataFlowStore) UpdateDFOutFromIn(loc nodeid.LocID, obj nodeid.NodeID, strongUpdate bool) bool {
	inSnap := s.slotIn(loc, obj).snapshot()
	o := s.slotOut(loc, obj)
	var changed bool
	if strongUpdate {
		before := o.snapshot()
		o.clear()
		changed = o.unionWith(&inSnap)
		changed = changed || !before.Equals(&inSnap)
	} else {
		changed = o.unionWith(&inSnap)
	}
	if changed {
		s.markDirty(loc, obj)
	}
	return changed
}

// UnionIntoDFOut sets OUT[loc][obj] |= src directly, the rule a store's
// value write uses (§4.6 "DFOut[l][o] |= pts(q)"), as opposed to
// UpdateDFOutFromIn's IN-to-OUT merge.
func (s *DataFlowStore) UnionIntoDFOut(loc nodeid.LocID, obj nodeid.NodeID, src PointsTo) bool {
	changed := s.slotOut(loc, obj).unionWith(&src)
	if changed {
		s.markDirty(loc, obj)
	}
	return changed
}

// UnionIntoDFIn sets IN[loc][obj] |= src directly, used to pull an
// indirect edge's source value (read off another node's own DFIn or
// DFOut slot by the caller) into this node's IN cell.
func (s *DataFlowStore) UnionIntoDFIn(loc nodeid.LocID, obj nodeid.NodeID, src PointsTo) bool {
	return s.slotIn(loc, obj).unionWith(&src)
}

// UpdateAllDFOutFromIn merges IN into OUT for every object currently
// tracked at loc, returning whether any of them changed. objs is the
// caller-supplied universe of objects live at loc (the mu/chi regions
// MemSSA attached to this location).
func (s *DataFlowStore) UpdateAllDFOutFromIn(loc nodeid.LocID, objs []nodeid.NodeID) bool {
	changed := false
	for _, o := range objs {
		if s.UpdateDFOutFromIn(loc, o, false) {
			changed = true
		}
	}
	return changed
}

// UpdateTLVPts unions src into the top-level (register) variable k's
// points-to set.
func (s *DataFlowStore) UpdateTLVPts(k nodeid.NodeID, src PointsTo) bool {
	m, ok := s.tlv[k]
	if !ok {
		m = &mutable{}
		s.tlv[k] = m
	}
	return m.unionWith(&src)
}

// GetTLVPts returns the top-level variable k's points-to set.
func (s *DataFlowStore) GetTLVPts(k nodeid.NodeID) PointsTo {
	m, ok := s.tlv[k]
	if !ok {
		return Empty
	}
	return m.snapshot()
}

// DirtyOutVars returns the objects whose OUT set changed at loc since
// the last ClearAllDFOutUpdatedVar(loc).
func (s *DataFlowStore) DirtyOutVars(loc nodeid.LocID) []nodeid.NodeID {
	m := s.dirtyOut[loc]
	out := make([]nodeid.NodeID, 0, len(m))
	for o := range m {
		out = append(out, o)
	}
	return out
}

// ClearAllDFOutUpdatedVar resets the dirty-out-var bitmap for loc so
// callers can skip unchanged out-variables on the next worklist pass.
func (s *DataFlowStore) ClearAllDFOutUpdatedVar(loc nodeid.LocID) {
	delete(s.dirtyOut, loc)
}
