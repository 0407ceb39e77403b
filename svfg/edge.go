package svfg

import (
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/nodeid"
)

// EdgeClass separates top-level (Direct) from address-taken (Indirect)
// value flow, per §3.
type EdgeClass int

const (
	Direct EdgeClass = iota
	Indirect
)

// EdgeVariant further distinguishes intra- from inter-procedural edges
// (the latter tagged with the callsite that created them).
type EdgeVariant int

const (
	IntraVariant EdgeVariant = iota
	CallVariant
	RetVariant
	ThreadMHPVariant // indirect-only: cross-thread may-happen-in-parallel edge
)

// Edge is one SVFG value-flow edge. Label is meaningful only for
// Indirect edges: the set of object ids the edge carries pts for.
type Edge struct {
	Src, Dst nodeid.NodeID
	Class    EdgeClass
	Variant  EdgeVariant
	Callsite nodeid.CallsiteID
	Label    bitset.PointsTo
}

func (e Edge) String() string {
	cls := "direct"
	if e.Class == Indirect {
		cls = "indirect"
	}
	return cls
}
