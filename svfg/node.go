// Package svfg builds and optimizes the Sparse Value-Flow Graph
// (component C5): one node per top-level PAG statement and per
// address-taken MemSSA operator, linked by direct (top-level) and
// indirect (memory) value-flow edges, plus the optimizer passes that
// coalesce formal/actual parameters into PHIs and bypass dead MemSSA
// PHIs.
package svfg

import (
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
)

// NodeKind tags the SVFG's node union (§3).
type NodeKind int

const (
	KindAddr NodeKind = iota
	KindCopy
	KindGep
	KindLoad
	KindStore
	KindPhi
	KindCmp
	KindBinaryOp
	KindUnaryOp
	KindBranch
	KindNullPtr
	KindActualParm
	KindFormalParm
	KindActualRet
	KindFormalRet
	KindActualIn
	KindActualOut
	KindFormalIn
	KindFormalOut
	KindMSSAPhi
	KindInterPhi
	KindInterMSSAPhi
	KindDummyVersionProp
)

func (k NodeKind) String() string {
	names := [...]string{
		"Addr", "Copy", "Gep", "Load", "Store", "Phi", "Cmp", "BinaryOp",
		"UnaryOp", "Branch", "NullPtr", "ActualParm", "FormalParm",
		"ActualRet", "FormalRet", "ActualIn", "ActualOut", "FormalIn",
		"FormalOut", "MSSAPhi", "InterPhi", "InterMSSAPhi", "DummyVersionProp",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// isAddressTaken reports whether k is a MemSSA-operator node kind; every other
// kind mirrors a PAG statement ("top-level value-flow").
func (k NodeKind) isAddressTaken() bool {
	switch k {
	case KindActualIn, KindActualOut, KindFormalIn, KindFormalOut, KindMSSAPhi, KindInterPhi, KindInterMSSAPhi:
		return true
	default:
		return false
	}
}

// Node is one SVFG vertex. Which fields are meaningful is determined
// by Kind; processing routines dispatch once on Kind and read only the
// payload that kind defines (§9 "avoid a polymorphic virtual-call
// design so that worklist inner loops remain monomorphic").
type Node struct {
	ID   nodeid.NodeID
	Kind NodeKind
	Loc  nodeid.LocID
	Fn   frontend.FuncID

	// Stmt is the underlying PAG statement for top-level nodes; the
	// zero value (Kind field StmtAddr with Src/Dst both 0) for
	// address-taken nodes.
	Stmt frontend.Stmt

	// Ver is the MemSSA version this node uses (mu-derived kinds) or
	// yields (chi-derived kinds).
	Ver memssa.MRVer

	Callsite nodeid.CallsiteID

	// OpVers carries one MRVer per predecessor for MSSAPhi/InterPhi
	// nodes, mirrored into the serialized "OPVers" field.
	OpVers []memssa.MRVer

	removed bool // true once the optimizer has excised this node
}
