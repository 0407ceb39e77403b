package frontend

import "github.com/svf-go/wpa/nodeid"

// FuncID and BlockID identify a function and an intraprocedural basic
// block in the front-end's interprocedural control-flow graph (ICFG).
// MemSSA construction (C4) and SVFG construction (C5) both walk the
// ICFG the front-end hands them; the core never builds or owns it.
type FuncID uint32
type BlockID uint32

// InstKind distinguishes the handful of instruction shapes MemSSA
// construction cares about: everything else is InstOther and carries
// no mu/chi obligations of its own.
type InstKind int

const (
	InstOther InstKind = iota
	InstLoad
	InstStore
	InstCallDirect
	InstCallIndirect
	InstRet
)

// Inst is one ICFG instruction, reduced to what createMUCHI (§4.4)
// needs: its location, its pointer operand (for Load/Store), and its
// callsite identity (for calls).
type Inst struct {
	Kind     InstKind
	Loc      nodeid.LocID
	Ptr      nodeid.NodeID // pointer operand of a Load/Store
	Callsite nodeid.CallsiteID
	Callee   nodeid.NodeID // direct callee's function object, valid iff Kind == InstCallDirect
}

// CFG is the capability this module consumes from the front-end's
// ICFG: function/block enumeration, dominance, and per-block
// instruction lists. BlockID 0 is never a valid block (mirrors the
// NodeID zero-reserved convention).
type CFG interface {
	Functions() []FuncID
	IsAddressTaken(fn FuncID) bool
	Reachable(fn FuncID) bool
	HasReachableReturn(fn FuncID) bool

	Blocks(fn FuncID) []BlockID
	EntryBlock(fn FuncID) BlockID
	Succs(b BlockID) []BlockID
	Preds(b BlockID) []BlockID

	// IDom returns b's immediate dominator, or 0 if b is an entry
	// block (no dominator other than itself).
	IDom(b BlockID) BlockID
	// DominanceFrontier returns DF(b) per Cytron et al.
	DominanceFrontier(b BlockID) []BlockID

	Instructions(b BlockID) []Inst

	// DirectCallers returns every direct callsite whose callee is fn,
	// used by SVFG construction to wire FormalIn/FormalOut edges.
	DirectCallers(fn FuncID) []nodeid.CallsiteID
	CallsiteFunc(cs nodeid.CallsiteID) FuncID
	CallsiteBlock(cs nodeid.CallsiteID) BlockID

	// IsMainFunc identifies the program entry, used to wire global
	// initializers into the first function's FormalIns (§4.5).
	IsMainFunc(fn FuncID) bool

	// FuncAtObj resolves a function object node — as carried by
	// Inst.Callee, or by a CallEdge.Callee newly discovered through
	// indirect-call resolution (§4.6) — back to the FuncID it
	// represents. Front-ends mint exactly one object per function
	// value, so this is always the inverse of whatever object a
	// function's address-taken uses produced.
	FuncAtObj(obj nodeid.NodeID) (FuncID, bool)
}
