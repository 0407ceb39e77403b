package fspta

import "time"

// Stats is the statistics the flow-sensitive solver publishes, mirroring
// andersen.Stats's shape for the per-kind processed counts plus the
// outer-loop bookkeeping specific to §4.6's SCCDetect/drain cycle.
type Stats struct {
	NodesProcessed int
	StrongUpdates  int
	WeakUpdates    int

	OuterPasses      int
	ResolvedIndirect int

	SolveTime time.Duration
	TimedOut  bool
}
