package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/svf-go/wpa/nodeid"
)

func TestPointsToUnionImmutable(t *testing.T) {
	a := NewPointsTo(1, 2, 3)
	b := NewPointsTo(3, 4)

	u := a.Union(b)
	assert.True(t, u.Has(1))
	assert.True(t, u.Has(4))
	assert.Equal(t, 4, u.Len())

	// a and b must be untouched.
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 2, b.Len())
}

func TestPointsToSubsetOf(t *testing.T) {
	small := NewPointsTo(1, 2)
	big := NewPointsTo(1, 2, 3)
	assert.True(t, small.SubsetOf(&big))
	assert.False(t, big.SubsetOf(&small))
}

func TestFlatStoreDidChangeSemantics(t *testing.T) {
	s := NewFlatStore()
	changed := s.AddPts(1, 10)
	assert.True(t, changed, "first insert must report change")

	changed = s.AddPts(1, 10)
	assert.False(t, changed, "re-inserting the same element must not report change")

	changed = s.UnionPts(1, NewPointsTo(10, 11))
	assert.True(t, changed, "union bringing in a new element must report change")

	changed = s.UnionPts(1, NewPointsTo(10, 11))
	assert.False(t, changed, "union of an already-subsumed set must not report change")
}

func TestDiffStorePropagationCycle(t *testing.T) {
	s := NewDiffStore()
	s.AddPts(1, 100)
	s.AddPts(1, 101)

	diff := s.GetDiffPts(1)
	assert.Equal(t, 2, diff.Len(), "nothing has been propagated yet")

	s.ComputeDiffPts(1, s.GetPts(1))
	assert.True(t, s.GetDiffPts(1).IsEmpty(), "diff must be empty immediately after a propagation cycle")

	s.AddPts(1, 102)
	diff = s.GetDiffPts(1)
	assert.Equal(t, 1, diff.Len(), "only the newly added element should appear in diff")
	assert.True(t, diff.Has(102))
}

func TestDataFlowStoreStrongUpdateDropsStaleOut(t *testing.T) {
	s := NewDataFlowStore()
	var loc nodeid.LocID = 1
	var obj nodeid.NodeID = 7

	s.slotIn(loc, obj).unionWith(ptPtr(NewPointsTo(1, 2, 3)))
	s.slotOut(loc, obj).unionWith(ptPtr(NewPointsTo(99))) // stale, pre-store value

	s.UpdateDFOutFromIn(loc, obj, true)
	out := s.GetDFOut(loc, obj)
	assert.False(t, out.Has(99), "strong update must not retain stale OUT members")
	assert.True(t, out.Has(1) && out.Has(2) && out.Has(3))
}

func TestDataFlowStoreWeakUpdateUnions(t *testing.T) {
	s := NewDataFlowStore()
	var loc nodeid.LocID = 2
	var obj nodeid.NodeID = 9

	s.slotIn(loc, obj).unionWith(ptPtr(NewPointsTo(1)))
	s.slotOut(loc, obj).unionWith(ptPtr(NewPointsTo(2)))

	s.UpdateDFOutFromIn(loc, obj, false)
	out := s.GetDFOut(loc, obj)
	assert.True(t, out.Has(1) && out.Has(2), "weak update must union, not replace")
}

func ptPtr(p PointsTo) *PointsTo { return &p }
