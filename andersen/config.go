package andersen

// Config carries the Andersen-specific options of §6 ("CLI / options"):
// diff-pts selects the wave-diff backend. DetectPWC (detect-pwc) and
// MaxFieldLimit (max-field-limit) are carried for callers but the
// solver does not read them: every positive-weight cycle found during
// SCC merge is folded field-insensitive regardless of DetectPWC, and
// no field-count limit is applied.
type Config struct {
	DiffPts          bool
	DetectPWC        bool
	MaxFieldLimit    int
	CollapseThreshold int // pts cardinality above which a node is folded field-insensitive
}

// DefaultConfig matches the teacher's own defaults: wave-diff and PWC
// detection on, field sensitivity unbounded, collapse only on actual
// PWC discovery (a very large threshold disables size-triggered
// collapse outright).
func DefaultConfig() Config {
	return Config{
		DiffPts:           true,
		DetectPWC:         true,
		MaxFieldLimit:     -1,
		CollapseThreshold: 1 << 20,
	}
}
