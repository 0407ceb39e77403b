package svfg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
)

// TestConnectIndirectCallWiresNewEdges builds a bare graph with one
// unresolved callsite's ActualIn/ActualOut and one callee's existing
// FormalIn/FormalOut, as buildAddressTaken would have minted them
// before the callsite's callee was known, and checks
// ConnectIndirectCall adds exactly the CallVariant/RetVariant indirect
// edges wireInterprocedural would have added had the call been direct
// from the start.
func TestConnectIndirectCallWiresNewEdges(t *testing.T) {
	const cs nodeid.CallsiteID = 7
	const callee frontend.FuncID = 3
	const region memssa.RegionID = 0

	mssa := &memssa.MemSSA{
		Regions: []*memssa.MemRegion{
			{ID: region, Objs: bitset.NewPointsTo(200)},
		},
	}

	g := New()
	ver := memssa.MRVer{Region: region}

	aiID := g.AddNode(&Node{Kind: KindActualIn, Callsite: cs, Ver: ver})
	aoID := g.AddNode(&Node{Kind: KindActualOut, Callsite: cs, Ver: ver})
	fiID := g.AddNode(&Node{Kind: KindFormalIn, Fn: callee, Ver: ver})
	foID := g.AddNode(&Node{Kind: KindFormalOut, Fn: callee, Ver: ver})

	assert.Empty(t, g.OutEdges(aiID), "no edges exist yet before resolution")
	assert.Empty(t, g.InEdges(aoID))

	touched := ConnectIndirectCall(g, mssa, cs, callee)
	assert.ElementsMatch(t, []nodeid.NodeID{fiID, aoID}, touched)

	foundCall := false
	for _, e := range g.OutEdges(aiID) {
		if e.Dst == fiID && e.Class == Indirect && e.Variant == CallVariant && e.Callsite == cs {
			foundCall = true
			assert.True(t, e.Label.Has(200), "edge label must carry the region's object set")
		}
	}
	assert.True(t, foundCall, "ActualIn must gain a CallVariant edge to the callee's FormalIn")

	foundRet := false
	for _, e := range g.OutEdges(foID) {
		if e.Dst == aoID && e.Class == Indirect && e.Variant == RetVariant && e.Callsite == cs {
			foundRet = true
		}
	}
	assert.True(t, foundRet, "FormalOut must gain a RetVariant edge back to the callsite's ActualOut")

	// Re-running for the same (cs, callee) must not duplicate edges:
	// ConnectIndirectCall checks for an existing edge itself, so a
	// repeated call for an already connected pair adds nothing.
	ConnectIndirectCall(g, mssa, cs, callee)
	count := 0
	for _, e := range g.OutEdges(aiID) {
		if e.Dst == fiID && e.Class == Indirect && e.Variant == CallVariant {
			count++
		}
	}
	assert.Equal(t, 1, count, "re-resolving the same callsite must not add a duplicate edge")
}

// TestConnectIndirectCallIgnoresOtherCallsitesAndCallees checks the
// node-family scan is scoped correctly: a second, unrelated
// callsite/callee pair already in the graph must not gain edges from
// a resolution naming a different pair.
func TestConnectIndirectCallIgnoresOtherCallsitesAndCallees(t *testing.T) {
	const cs1 nodeid.CallsiteID = 1
	const cs2 nodeid.CallsiteID = 2
	const callee1 frontend.FuncID = 11
	const callee2 frontend.FuncID = 12
	const region memssa.RegionID = 0

	mssa := &memssa.MemSSA{
		Regions: []*memssa.MemRegion{{ID: region, Objs: bitset.NewPointsTo(9)}},
	}

	g := New()
	ver := memssa.MRVer{Region: region}

	ai1 := g.AddNode(&Node{Kind: KindActualIn, Callsite: cs1, Ver: ver})
	g.AddNode(&Node{Kind: KindActualIn, Callsite: cs2, Ver: ver})
	fi1 := g.AddNode(&Node{Kind: KindFormalIn, Fn: callee1, Ver: ver})
	g.AddNode(&Node{Kind: KindFormalIn, Fn: callee2, Ver: ver})

	ConnectIndirectCall(g, mssa, cs1, callee1)

	for _, e := range g.OutEdges(ai1) {
		assert.Equal(t, fi1, e.Dst, "cs1's ActualIn must only connect to callee1's FormalIn")
	}
}
