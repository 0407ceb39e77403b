package svfg

import (
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
)

// ConnectIndirectCall wires fresh ActualIn->FormalIn (CallVariant) and
// FormalOut->ActualOut (RetVariant) indirect edges for a callsite whose
// callee was only discovered after this SVFG was built — §4.6's
// connectCallerAndCallee/updateConnectedNodes, run by the flow-sensitive
// solver's on-the-fly call-graph refinement every time ResolveIndCalls
// reports a new (callsite, callee) pair. Both endpoint families already
// exist: Build mints one ActualIn/ActualOut per call-mu/call-chi and one
// FormalIn/FormalOut per function regardless of whether any particular
// call to it is direct or indirect, so no node is minted here, only the
// edges a direct call would already have gotten from wireInterprocedural.
// It returns the ids of the nodes that gained a new in-edge (the
// callee's FormalIns and the callsite's ActualOuts), so the caller can
// fold them back into its own dirty/changed bookkeeping.
func ConnectIndirectCall(g *Graph, mssa *memssa.MemSSA, cs nodeid.CallsiteID, calleeFn frontend.FuncID) []nodeid.NodeID {
	var actualIn, actualOut, formalIn, formalOut []*Node
	for _, n := range g.Nodes() {
		switch n.Kind {
		case KindActualIn:
			if n.Callsite == cs {
				actualIn = append(actualIn, n)
			}
		case KindActualOut:
			if n.Callsite == cs {
				actualOut = append(actualOut, n)
			}
		case KindFormalIn:
			if n.Fn == calleeFn {
				formalIn = append(formalIn, n)
			}
		case KindFormalOut:
			if n.Fn == calleeFn {
				formalOut = append(formalOut, n)
			}
		}
	}

	regionLabel := func(region memssa.RegionID) bitset.PointsTo {
		if int(region) < len(mssa.Regions) {
			return mssa.Regions[region].Objs
		}
		return bitset.Empty
	}

	var touched []nodeid.NodeID
	for _, ai := range actualIn {
		for _, fi := range formalIn {
			if ai.Ver.Region != fi.Ver.Region {
				continue
			}
			if hasEdge(g, ai.ID, fi.ID, Indirect, CallVariant) {
				continue
			}
			g.AddEdge(&Edge{Src: ai.ID, Dst: fi.ID, Class: Indirect, Variant: CallVariant, Callsite: cs, Label: regionLabel(fi.Ver.Region)})
			touched = append(touched, fi.ID)
		}
	}
	for _, fo := range formalOut {
		for _, ao := range actualOut {
			if fo.Ver.Region != ao.Ver.Region {
				continue
			}
			if hasEdge(g, fo.ID, ao.ID, Indirect, RetVariant) {
				continue
			}
			g.AddEdge(&Edge{Src: fo.ID, Dst: ao.ID, Class: Indirect, Variant: RetVariant, Callsite: cs, Label: regionLabel(fo.Ver.Region)})
			touched = append(touched, ao.ID)
		}
	}
	return touched
}

func hasEdge(g *Graph, src, dst nodeid.NodeID, class EdgeClass, variant EdgeVariant) bool {
	for _, e := range g.InEdges(dst) {
		if e.Src == src && e.Class == class && e.Variant == variant {
			return true
		}
	}
	return false
}
