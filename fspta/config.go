package fspta

import "time"

// Config carries the flow-sensitive solver's options of §6: fs-time-limit
// arms the analysis alarm checked at outer-loop boundaries (§5), and
// MaxWorklistPasses bounds the {SCCDetect, drain worklist} outer loop
// as a last-resort guard against a call-graph refinement that never
// quiesces.
type Config struct {
	TimeLimit         time.Duration
	MaxWorklistPasses int
}

// DefaultConfig mirrors the teacher's own defaults for andersen.Config:
// no alarm armed, a generous but finite outer-loop bound.
func DefaultConfig() Config {
	return Config{
		TimeLimit:         0,
		MaxWorklistPasses: 1 << 16,
	}
}
