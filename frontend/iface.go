// Package frontend declares the interfaces this module consumes from
// its external collaborators: the PAG/SVFIR builder and the
// class-hierarchy graph used to resolve C++-style virtual calls. Per
// §1, neither is implemented here — only the capability surface the
// core (cgraph, andersen, memssa, svfg, fspta, vfspta) calls into.
package frontend

import (
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/nodeid"
)

// StmtKind names a PAG statement edge, translated one-for-one into a
// cgraph.EdgeKind during constraint generation.
type StmtKind int

const (
	StmtAddr StmtKind = iota
	StmtCopy
	StmtGep
	StmtLoad
	StmtStore
	StmtCall
	StmtRet
)

// Stmt is one PAG edge: Src/Dst are node ids, meaning depends on Kind
// (e.g. for StmtAddr, Dst = &Src; for StmtGep, Offset/Variant apply).
type Stmt struct {
	Kind    StmtKind
	Src     nodeid.NodeID
	Dst     nodeid.NodeID
	Offset  uint32
	Variant bool
	Callsite nodeid.CallsiteID // valid iff Kind == StmtCall or StmtRet

	// Loc is this statement's ICFG location, shared with the CFG's
	// Inst.Loc for the same instruction; it is how C5 correlates a
	// top-level Load/Store statement with its MemSSA mu/chi (the core
	// never re-derives control flow, it only keys into what the
	// front-end already numbered). Valid (nonzero) only for
	// StmtLoad/StmtStore.
	Loc nodeid.LocID
}

// PAG is the program-assignment graph the front-end builds once,
// immutably, before C3 runs.
type PAG interface {
	// Nodes iterates the dense NodeID space, including id 0.
	NumNodes() int

	// Statements returns every PAG edge to translate into the
	// constraint graph.
	Statements() []Stmt

	// GetBaseObj returns the base (offset-0) object of a possibly
	// field-derived object node.
	GetBaseObj(n nodeid.NodeID) nodeid.NodeID

	// GetAllFieldsObjVars returns every field-derived object of the
	// base object obj, folded together when obj is field-insensitive.
	GetAllFieldsObjVars(obj nodeid.NodeID) []nodeid.NodeID

	IsFieldInsensitive(n nodeid.NodeID) bool
	IsHeapMemObj(n nodeid.NodeID) bool
	IsBlkObjOrConstantObj(n nodeid.NodeID) bool
	IsNonPointerObj(n nodeid.NodeID) bool
	IsLocalVarInRecursiveFun(n nodeid.NodeID) bool

	// GetGepObjVar returns (creating if necessary) the field-derived
	// object of obj at offset, with the same id on every call for the
	// same (obj, offset) pair.
	GetGepObjVar(obj nodeid.NodeID, offset uint32) nodeid.NodeID

	// GetFIObjVar returns the field-insensitive object-id standing in
	// for all fields of obj.
	GetFIObjVar(obj nodeid.NodeID) nodeid.NodeID

	// IndirectCallsites enumerates call sites whose callee is not
	// statically known.
	IndirectCallsites() []nodeid.CallsiteID

	// FuncPtrNode returns the node whose points-to set gives the
	// candidate callees of an indirect callsite.
	FuncPtrNode(cs nodeid.CallsiteID) nodeid.NodeID

	// ResolveIndCalls resolves an indirect callsite given the
	// points-to set of its function-pointer operand, appending newly
	// discovered (cs, callee) edges to newEdges.
	ResolveIndCalls(cs nodeid.CallsiteID, pts bitset.PointsTo, newEdges *[]CallEdge)

	// ResolveCPPIndCalls resolves a virtual callsite given the
	// points-to set of its vtable operand; it delegates to the CHG.
	ResolveCPPIndCalls(cs nodeid.CallsiteID, vtblPts bitset.PointsTo, chg CHG, newEdges *[]CallEdge)
}

// CallEdge is a newly resolved (callsite, callee-function-object)
// pair, as produced by on-the-fly call-graph refinement (§4.6).
type CallEdge struct {
	Callsite nodeid.CallsiteID
	Callee   nodeid.NodeID
}

// VtblID identifies a vtable object recognized by the CHG.
type VtblID nodeid.NodeID

// CHG is the capability this module consumes from the (out of scope)
// class-hierarchy graph: given a callsite and a vtable set, return the
// set of virtual callees.
type CHG interface {
	CSHasVtblsBasedOnCHA(cs nodeid.CallsiteID) bool
	GetCSVtblsBasedOnCHA(cs nodeid.CallsiteID) []VtblID
	GetVFnsFromVtbls(cs nodeid.CallsiteID, vtbls []VtblID) []nodeid.NodeID
}
