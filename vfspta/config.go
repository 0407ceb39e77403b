package vfspta

import "time"

// Config carries the versioned flow-sensitive solver's options, mirroring
// fspta.Config's shape: a time budget checked at every propagation
// worklist iteration (not during labelling), and a bound on the
// propagation worklist as a last-resort guard.
type Config struct {
	TimeLimit     time.Duration
	MaxIterations int
}

// DefaultConfig mirrors fspta.DefaultConfig's defaults.
func DefaultConfig() Config {
	return Config{
		TimeLimit:     0,
		MaxIterations: 1 << 16,
	}
}
