package andersen

import (
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/nodeid"
)

// ptsStore is the narrow points-to interface the solver needs,
// satisfied by flatAdapter (over bitset.FlatStore, context-insensitive
// Andersen) or diffAdapter (over bitset.DiffStore, wave-diff
// propagation), selected by Config.DiffPts. Isolating it here keeps
// solver.go ignorant of which backend is live.
type ptsStore interface {
	GetPts(k nodeid.NodeID) bitset.PointsTo
	// GetDiff returns the subset of pts(k) not yet propagated along
	// k's outgoing copy edges this wave. For the flat backend this is
	// simply the full current set (flat Andersen re-scans everything
	// every round; only the diff backend gets the asymptotic benefit).
	GetDiff(k nodeid.NodeID) bitset.PointsTo
	AddPts(k, o nodeid.NodeID) bool
	UnionPts(k nodeid.NodeID, src bitset.PointsTo) bool
	// FinishWave marks k's current pts as propagated, so the next
	// GetDiff call returns only what arrives afterward.
	FinishWave(k nodeid.NodeID)
	// AbsorbPropagation folds src's propagation bookkeeping into dst's
	// after an SCC merge, so already-propagated members of src are not
	// re-sent by dst.
	AbsorbPropagation(dst, src nodeid.NodeID)
	ClearPts(k nodeid.NodeID)
	GetAllPts(liveOnly bool) map[nodeid.NodeID]bitset.PointsTo
}

// flatAdapter is the context-insensitive (non-wave) backend.
type flatAdapter struct{ s *bitset.FlatStore }

func newFlatAdapter() *flatAdapter { return &flatAdapter{s: bitset.NewFlatStore()} }

func (a *flatAdapter) GetPts(k nodeid.NodeID) bitset.PointsTo  { return a.s.GetPts(k) }
func (a *flatAdapter) GetDiff(k nodeid.NodeID) bitset.PointsTo { return a.s.GetPts(k) }
func (a *flatAdapter) AddPts(k, o nodeid.NodeID) bool          { return a.s.AddPts(k, o) }
func (a *flatAdapter) UnionPts(k nodeid.NodeID, src bitset.PointsTo) bool {
	return a.s.UnionPts(k, src)
}
func (a *flatAdapter) FinishWave(nodeid.NodeID)                {}
func (a *flatAdapter) AbsorbPropagation(dst, src nodeid.NodeID) {}
func (a *flatAdapter) ClearPts(k nodeid.NodeID)                { a.s.ClearPts(k) }
func (a *flatAdapter) GetAllPts(liveOnly bool) map[nodeid.NodeID]bitset.PointsTo {
	return a.s.GetAllPts(liveOnly)
}

// diffAdapter is the wave-diff backend: a read returns only the diff,
// and a successful union leaves the newly added bits in diff until
// FinishWave moves them into propagated.
type diffAdapter struct{ s *bitset.DiffStore }

func newDiffAdapter() *diffAdapter { return &diffAdapter{s: bitset.NewDiffStore()} }

func (a *diffAdapter) GetPts(k nodeid.NodeID) bitset.PointsTo  { return a.s.GetPts(k) }
func (a *diffAdapter) GetDiff(k nodeid.NodeID) bitset.PointsTo { return a.s.GetDiffPts(k) }
func (a *diffAdapter) AddPts(k, o nodeid.NodeID) bool          { return a.s.AddPts(k, o) }
func (a *diffAdapter) UnionPts(k nodeid.NodeID, src bitset.PointsTo) bool {
	return a.s.UnionPts(k, src)
}
func (a *diffAdapter) FinishWave(k nodeid.NodeID) { a.s.ComputeDiffPts(k, a.s.GetPts(k)) }
func (a *diffAdapter) AbsorbPropagation(dst, src nodeid.NodeID) {
	a.s.UpdatePropaPtsMap(src, dst)
}
func (a *diffAdapter) ClearPts(k nodeid.NodeID) { a.s.ClearPts(k) }
func (a *diffAdapter) GetAllPts(liveOnly bool) map[nodeid.NodeID]bitset.PointsTo {
	return a.s.GetAllPts(liveOnly)
}
