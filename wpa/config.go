package wpa

import (
	"time"

	"github.com/svf-go/wpa/andersen"
	"github.com/svf-go/wpa/fspta"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/svfg"
	"github.com/svf-go/wpa/vfspta"
	"github.com/svf-go/wpa/wpaerr"
)

// Config aggregates every CLI/options entry of §6 into one struct,
// mirroring the teacher's own pointer.Config: a single value object a
// client builds once and hands to New, validated up front rather than
// checked piecemeal during the run.
type Config struct {
	// Andersen (C3).
	DiffPts           bool
	DetectPWC         bool
	MaxFieldLimit     int
	CollapseThreshold int

	// MemSSA (C4): mem-par selects the region-partitioning strategy.
	MemPartition memssa.Partition

	// SVFG (C5): opt-svfg/self-cycle/keep-aofi.
	OptimizeSVFG    bool
	SelfCycle       svfg.SelfCyclePolicy
	KeepAOFI        bool
	WriteSVFGPath   string // carried for clients; Build never writes an SVFG file
	ReadSVFGPath    string // carried for clients; Build always builds the SVFG fresh

	// Flow-sensitive solving (C6/C7): fs-time-limit, and whether to run
	// the versioned variant (C7) instead of the plain one (C6).
	RunFlowSensitive bool
	Versioned        bool
	FSTimeLimit      time.Duration

	// CxtLimit bounds call-string length for a context-sensitive
	// front-end; the core never branches on it directly (context
	// sensitivity is a front-end/PAG-shaping concern per §1's
	// Non-goals), but it is carried here since §6 lists it as a
	// client-visible option and a future front-end adapter will read
	// it off this same Config rather than a second options type.
	CxtLimit int

	// CacheDBPath, non-empty, enables the sqlite-backed alias-query
	// cache at this path (domain stack).
	CacheDBPath string

	// Debug gates both the logging sink and the pp-based dumps.
	Debug bool
}

// DefaultConfig matches the teacher's own defaults (andersen.DefaultConfig,
// svfg.DefaultOptConfig), plus IntraDisjoint memory regions and flow
// sensitivity off by default (an Analyzer client opts in explicitly,
// since C6/C7 are substantially more expensive than C3 alone).
func DefaultConfig() Config {
	ac := andersen.DefaultConfig()
	oc := svfg.DefaultOptConfig()
	return Config{
		DiffPts:           ac.DiffPts,
		DetectPWC:         ac.DetectPWC,
		MaxFieldLimit:     ac.MaxFieldLimit,
		CollapseThreshold: ac.CollapseThreshold,

		MemPartition: memssa.IntraDisjoint,

		OptimizeSVFG: oc.Enabled,
		SelfCycle:    oc.SelfCycle,
		KeepAOFI:     oc.KeepActualOutFormalIn,

		RunFlowSensitive: false,
		Versioned:        false,
		FSTimeLimit:      0,

		CxtLimit: 0,
	}
}

// Validate rejects option combinations that can never produce a sound
// run, the way andersen.New/fspta.New validate their own narrower
// Config types; Analyzer.New calls this before doing anything else.
func (c Config) Validate() error {
	if c.MaxFieldLimit < -1 {
		return wpaerr.NewConfig("wpa", "MaxFieldLimit must be -1 (unbounded) or >= 0, got %d", c.MaxFieldLimit)
	}
	if c.CollapseThreshold <= 0 {
		return wpaerr.NewConfig("wpa", "CollapseThreshold must be positive, got %d", c.CollapseThreshold)
	}
	if c.CxtLimit < 0 {
		return wpaerr.NewConfig("wpa", "CxtLimit must be non-negative, got %d", c.CxtLimit)
	}
	if c.FSTimeLimit < 0 {
		return wpaerr.NewConfig("wpa", "FSTimeLimit must be non-negative, got %s", c.FSTimeLimit)
	}
	return nil
}

func (c Config) andersenConfig() andersen.Config {
	return andersen.Config{
		DiffPts:           c.DiffPts,
		DetectPWC:         c.DetectPWC,
		MaxFieldLimit:     c.MaxFieldLimit,
		CollapseThreshold: c.CollapseThreshold,
	}
}

func (c Config) svfgOptConfig() svfg.OptConfig {
	return svfg.OptConfig{
		Enabled:               c.OptimizeSVFG,
		KeepActualOutFormalIn: c.KeepAOFI,
		SelfCycle:             c.SelfCycle,
	}
}

func (c Config) fsptaConfig() fspta.Config {
	return fspta.Config{
		TimeLimit:         c.FSTimeLimit,
		MaxWorklistPasses: fspta.DefaultConfig().MaxWorklistPasses,
	}
}

func (c Config) vfsptaConfig() vfspta.Config {
	return vfspta.Config{
		TimeLimit:     c.FSTimeLimit,
		MaxIterations: vfspta.DefaultConfig().MaxIterations,
	}
}
