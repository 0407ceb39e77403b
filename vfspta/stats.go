package vfspta

import "time"

// Stats mirrors fspta.Stats's shape, substituting the meld-labelling
// pass count and version count for fspta's SCC/strong-update counters,
// since strong/weak update granularity here is implicit in version
// identity rather than an explicit per-store decision. Solve does not
// update MeldIterations; it stays zero.
type Stats struct {
	NodesProcessed int
	MeldIterations int
	Versions       int
	Reprocessed    int

	SolveTime time.Duration
	TimedOut  bool
}
