package cgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/svf-go/wpa/nodeid"
)

// TestCycleMergesToSingleRep covers S4: p = q; q = p; forms a 2-cycle
// that the SCC engine must merge to one representative.
func TestCycleMergesToSingleRep(t *testing.T) {
	g := New(3) // 0 unused, 1=p, 2=q
	p, q := nodeid.NodeID(1), nodeid.NodeID(2)
	g.AddCopy(q, p) // q = p
	g.AddCopy(p, q) // p = q

	sccs := g.DetectSCCs(Direct)
	var merged bool
	unioned := map[nodeid.NodeID]bool{}
	for _, scc := range sccs {
		if len(scc) > 1 {
			merged = true
			g.MergeSCC(scc, func(dst, src nodeid.NodeID) { unioned[src] = true })
		}
	}
	assert.True(t, merged, "p and q must form a detected SCC")
	assert.Equal(t, g.Find(p), g.Find(q), "p and q must share a representative after merge")
}

func TestPWCDetectedOnGepCycle(t *testing.T) {
	g := New(3)
	a, b := nodeid.NodeID(1), nodeid.NodeID(2)
	g.AddGep(b, a, 0, false) // b = &a.#0
	g.AddCopy(a, b)          // a = b

	sccs := g.DetectSCCs(Direct)
	for _, scc := range sccs {
		if len(scc) > 1 {
			res := g.MergeSCC(scc, func(nodeid.NodeID, nodeid.NodeID) {})
			assert.True(t, res.PWC, "a cycle containing a Gep edge must be flagged PWC")
		}
	}
}

func TestEdgesRewrittenToRepAfterMerge(t *testing.T) {
	g := New(4)
	a, b, c := nodeid.NodeID(1), nodeid.NodeID(2), nodeid.NodeID(3)
	g.AddCopy(b, a)
	g.AddCopy(a, b) // {a,b} cycle
	g.AddCopy(c, b) // external edge from the cycle to c

	sccs := g.DetectSCCs(Direct)
	for _, scc := range sccs {
		if len(scc) > 1 {
			g.MergeSCC(scc, func(nodeid.NodeID, nodeid.NodeID) {})
		}
	}
	rep := g.Find(a)
	// the external edge must now be owned by rep, not by the absorbed node.
	_, ok := g.nodes[rep].DirectOut[c]
	assert.True(t, ok, "external successor must be rewired to the surviving rep")
}
