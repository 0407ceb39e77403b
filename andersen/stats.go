package andersen

import "time"

// Stats is the statistics the solver must publish per §4.3: per-kind
// processed edge counts, SCC detection count, phase timings and the
// largest points-to set observed. Stats reporting proper (formatting,
// dumping) is out of core scope; this struct is the plain result
// record the core hands to whatever does that formatting.
type Stats struct {
	AddrProcessed  int
	CopyProcessed  int
	GepProcessed   int
	LoadProcessed  int
	StoreProcessed int

	SCCDetections int
	PWCsMerged    int

	MaxPtsSize int

	ConstraintGenTime time.Duration
	SolveTime         time.Duration

	TimedOut bool
}

func (s *Stats) observePtsSize(n int) {
	if n > s.MaxPtsSize {
		s.MaxPtsSize = n
	}
}
