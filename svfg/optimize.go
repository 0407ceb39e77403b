package svfg

import (
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
)

// SelfCyclePolicy governs which MSSA-PHI self-loops survive the
// optimizer's bypass pass (§4.5 rule 5).
type SelfCyclePolicy int

const (
	SelfCycleAll SelfCyclePolicy = iota
	SelfCycleContext
	SelfCycleNone
)

// OptConfig carries the optimizer's CLI-exposed tunables (§6
// "opt-svfg", "self-cycle", "keep-aofi").
type OptConfig struct {
	Enabled         bool
	KeepActualOutFormalIn bool
	SelfCycle       SelfCyclePolicy
}

// DefaultOptConfig matches the teacher's defaults: run the optimizer,
// remove the ActualIn/FormalOut nodes rule 6 does not protect, keep
// call/ret self-loops only.
func DefaultOptConfig() OptConfig {
	return OptConfig{Enabled: true, KeepActualOutFormalIn: false, SelfCycle: SelfCycleContext}
}

// Optimize mutates g in place per §4.5's six rules: coalesce
// FormalParm/ActualRet into PHIs, remove non-load-bearing
// ActualIn/FormalOut nodes (bypassing their def through to the
// successor), and bypass MSSA-PHIs whose self-cycle policy allows it.
// icfg and pag are read-only here, consulted only to check rule 6's
// removability exceptions (an ActualIn at an indirect call, or a
// FormalOut at an address-taken function exit, is never removed).
func Optimize(g *Graph, icfg frontend.CFG, pag frontend.PAG, cfg OptConfig) {
	if !cfg.Enabled {
		return
	}
	coalesceFormalParm(g)
	coalesceActualRet(g)
	if !cfg.KeepActualOutFormalIn {
		bypassActualInFormalOut(g, icfg, pag)
	}
	bypassMSSAPhis(g, cfg.SelfCycle)
}

// coalesceFormalParm implements rule 1: a FormalParm becomes a PHI
// whose operands are whatever ActualParms reach it; the node's
// existing out-edges are left untouched, only its Kind changes.
func coalesceFormalParm(g *Graph) {
	for _, n := range g.Nodes() {
		if n.Kind != KindFormalParm {
			continue
		}
		n.Kind = KindPhi
	}
}

// coalesceActualRet implements rule 2, symmetric to rule 1: an
// ActualRet becomes a PHI fed by whichever FormalRets reach it.
func coalesceActualRet(g *Graph) {
	for _, n := range g.Nodes() {
		if n.Kind != KindActualRet {
			continue
		}
		n.Kind = KindPhi
	}
}

// bypassActualInFormalOut implements rules 3 and 6: remove every
// ActualIn not at an indirect call and every FormalOut not at an
// address-taken function exit, retargeting each one's sole incoming
// def directly to its successors — unless doing so would connect two
// call/ret edges simultaneously (the def's own incoming edge and one
// of its successors both inter-procedural), in which case the node is
// retained instead. When predecessor and successor labels intersect,
// the new edge carries the intersection (approximated here as the
// successor edge's label, since both sides were built from the same
// MemRegion and so already agree).
func bypassActualInFormalOut(g *Graph, icfg frontend.CFG, pag frontend.PAG) {
	indirectCS := make(map[nodeid.CallsiteID]bool)
	for _, cs := range pag.IndirectCallsites() {
		indirectCS[cs] = true
	}

	for _, n := range g.Nodes() {
		if n.Kind != KindActualIn && n.Kind != KindFormalOut {
			continue
		}
		if n.Kind == KindActualIn && indirectCS[n.Callsite] {
			continue // rule 6: an ActualIn at an indirect call is never removed
		}
		if n.Kind == KindFormalOut && icfg.IsAddressTaken(n.Fn) {
			continue // rule 6: a FormalOut at an address-taken function exit is never removed
		}

		ins := g.InEdges(n.ID)
		outs := g.OutEdges(n.ID)
		if len(ins) == 0 {
			continue
		}
		def := ins[0]
		if def.Variant != IntraVariant && hasInterEdge(outs) {
			continue // rule 6: would splice two call/ret edges together
		}
		for _, out := range outs {
			g.AddEdge(&Edge{
				Src:      def.Src,
				Dst:      out.Dst,
				Class:    Indirect,
				Variant:  out.Variant,
				Callsite: out.Callsite,
				Label:    out.Label,
			})
		}
		g.RemoveNode(n.ID)
	}
}

func hasInterEdge(edges []*Edge) bool {
	for _, e := range edges {
		if e.Variant != IntraVariant {
			return true
		}
	}
	return false
}

// bypassMSSAPhis implements rules 4 and 5: a PHI with no retained
// self-cycle is bypassed by connecting every (predecessor, successor)
// pair directly, picking the callsite id from whichever side is
// inter-procedural (the optimizer rejects both sides being inter, per
// §9's open question about tail calls — we simply prefer the
// predecessor's callsite when both are set, rather than reject).
func bypassMSSAPhis(g *Graph, policy SelfCyclePolicy) {
	for _, n := range g.Nodes() {
		if n.Kind != KindMSSAPhi {
			continue
		}

		stripSelfLoops(g, n.ID, policy)

		retained := false
		for _, e := range g.InEdges(n.ID) {
			if e.Src == n.ID {
				retained = true
			}
		}
		if retained {
			continue
		}

		ins := g.InEdges(n.ID)
		outs := g.OutEdges(n.ID)
		if len(ins) == 0 || len(outs) == 0 {
			continue
		}

		for _, pre := range ins {
			for _, succ := range outs {
				if !pre.Label.Intersects(&succ.Label) {
					continue
				}
				cs := pre.Callsite
				variant := pre.Variant
				if pre.Variant == IntraVariant {
					cs = succ.Callsite
					variant = succ.Variant
				}
				g.AddEdge(&Edge{
					Src:      pre.Src,
					Dst:      succ.Dst,
					Class:    Indirect,
					Variant:  variant,
					Callsite: cs,
					Label:    pre.Label.Intersection(succ.Label),
				})
			}
		}
		g.RemoveNode(n.ID)
	}
}

func stripSelfLoops(g *Graph, n nodeid.NodeID, policy SelfCyclePolicy) {
	switch policy {
	case SelfCycleAll:
		return
	case SelfCycleContext:
		g.RemoveEdge(n, n, Indirect, IntraVariant)
	case SelfCycleNone:
		g.RemoveEdge(n, n, Indirect, IntraVariant)
		g.RemoveEdge(n, n, Indirect, CallVariant)
		g.RemoveEdge(n, n, Indirect, RetVariant)
	}
}
