// Package bitset implements the points-to data store (component C1):
// the sparse NodeID-set representation and its four backends (flat,
// differential, data-flow, versioned).
//
// The sparse set itself is golang.org/x/tools/container/intsets.Sparse,
// the same representation the original go/pointer analysis used for
// its node-sets; every union here is the did-change-reporting
// UnionWith, never a blind merge, since the worklist solvers in
// andersen, fspta and vfspta depend on an accurate changed signal to
// converge.
package bitset

import (
	"bytes"
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/svf-go/wpa/nodeid"
)

// PointsTo is an immutable-looking snapshot of a set of NodeIDs. Call
// sites obtain one by copying out of a store (Store.GetPts); mutating
// it has no effect on the store that produced it.
type PointsTo struct {
	bits intsets.Sparse
}

// Empty is the canonical empty PointsTo.
var Empty = PointsTo{}

// NewPointsTo builds a PointsTo from a literal list of ids, for tests
// and for constant object sets.
func NewPointsTo(ids ...nodeid.NodeID) PointsTo {
	var p PointsTo
	for _, id := range ids {
		p.bits.Insert(int(id))
	}
	return p
}

// Has reports whether id is a member.
func (p *PointsTo) Has(id nodeid.NodeID) bool { return p.bits.Has(int(id)) }

// Len reports the set's cardinality.
func (p *PointsTo) Len() int { return p.bits.Len() }

// IsEmpty reports whether the set has no members.
func (p *PointsTo) IsEmpty() bool { return p.bits.IsEmpty() }

// Copy returns an independent copy of p.
func (p PointsTo) Copy() PointsTo {
	var out PointsTo
	out.bits.Copy(&p.bits)
	return out
}

// ForEach calls f once per member, in ascending order.
func (p *PointsTo) ForEach(f func(nodeid.NodeID)) {
	for _, v := range p.bits.AppendTo(nil) {
		f(nodeid.NodeID(v))
	}
}

// AppendTo appends the set's members, in ascending order, to dst.
func (p *PointsTo) AppendTo(dst []nodeid.NodeID) []nodeid.NodeID {
	for _, v := range p.bits.AppendTo(nil) {
		dst = append(dst, nodeid.NodeID(v))
	}
	return dst
}

// Union returns a new set containing the union of p and q. It does not
// mutate either operand.
func (p PointsTo) Union(q PointsTo) PointsTo {
	var out PointsTo
	out.bits.Copy(&p.bits)
	out.bits.UnionWith(&q.bits)
	return out
}

// Intersection returns p ∩ q.
func (p PointsTo) Intersection(q PointsTo) PointsTo {
	var out PointsTo
	out.bits.Copy(&p.bits)
	out.bits.IntersectionWith(&q.bits)
	return out
}

// Intersects reports whether p and q share any member, without
// materializing the intersection.
func (p *PointsTo) Intersects(q *PointsTo) bool {
	return p.bits.Intersects(&q.bits)
}

// Difference returns p \ q.
func (p PointsTo) Difference(q PointsTo) PointsTo {
	var out PointsTo
	out.bits.Copy(&p.bits)
	out.bits.DifferenceWith(&q.bits)
	return out
}

// Equals reports set equality.
func (p *PointsTo) Equals(q *PointsTo) bool { return p.bits.Equals(&q.bits) }

// SubsetOf reports whether p ⊆ q, used directly by the copy/load/store
// closure properties in the testable-properties suite.
func (p *PointsTo) SubsetOf(q *PointsTo) bool { return p.bits.SubsetOf(&q.bits) }

func (p *PointsTo) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	p.ForEach(func(id nodeid.NodeID) {
		if !first {
			buf.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&buf, "%d", id)
	})
	buf.WriteByte('}')
	return buf.String()
}

// mutable is the backend-internal counterpart to PointsTo: a growable
// sparse set plus the did-change bookkeeping every store operation
// must honor (§5: "no update must be issued unless the predicate is
// honored, otherwise the worklist fails to converge").
type mutable struct {
	bits intsets.Sparse
}

func (m *mutable) snapshot() PointsTo {
	var out PointsTo
	out.bits.Copy(&m.bits)
	return out
}

func (m *mutable) has(id nodeid.NodeID) bool { return m.bits.Has(int(id)) }

func (m *mutable) add(id nodeid.NodeID) bool { return m.bits.Insert(int(id)) }

func (m *mutable) unionWith(src *PointsTo) bool { return m.bits.UnionWith(&src.bits) }

func (m *mutable) clear() { m.bits.Clear() }
