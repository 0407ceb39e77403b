// Package wpa is the top-level whole-program pointer analysis bundle:
// it owns the PAG, drives C3 (Andersen) to build a call graph and a
// flow-insensitive points-to approximation, then C4 (MemSSA) and C5
// (SVFG), then optionally C6 or C7 (flow-sensitive solving) over that
// SVFG, and answers client-facing points-to/alias queries against
// whichever result is the most precise one it built.
package wpa

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/svf-go/wpa/andersen"
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/fspta"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/memssa"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/svfg"
	"github.com/svf-go/wpa/vfspta"
	"github.com/svf-go/wpa/wpaerr"
)

// AnalysisResult is the client-facing summary of a completed run,
// stamped with a run id so a long-lived client can correlate a stats
// dump against this run's cached alias queries (domain stack: the
// sqlite-backed cache in cache.go is keyed by the same RunID).
type AnalysisResult struct {
	RunID        string
	AndersenTime time.Duration
	MemSSATime   time.Duration
	SVFGTime     time.Duration
	FSTime       time.Duration
	FlowSensitive bool
	Versioned    bool
}

// Analyzer is the owning bundle a client builds once per program under
// analysis. Build fills its fields in dependency order (Andersen,
// MemSSA, SVFG, then the flow-sensitive result), and Close drops them
// leaf-first: the SVFG and the flow-sensitive results, then MemSSA,
// the Andersen result and the PAG.
type Analyzer struct {
	cfg Config
	pag frontend.PAG

	andersenResult *andersen.Result
	mssa           *memssa.MemSSA
	svfgGraph      *svfg.Graph
	fsResult       *fspta.Result
	vfsResult      *vfspta.Result

	result AnalysisResult

	log    func(format string, args ...interface{})
	cache  *aliasCache
	single singleflight.Group
}

// New validates cfg and returns an empty Analyzer; call Build to run
// the pipeline.
func New(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{cfg: cfg}
	if cfg.CacheDBPath != "" {
		c, err := openAliasCache(cfg.CacheDBPath)
		if err != nil {
			return nil, wpaerr.NewIO("wpa", err, "opening alias cache at %s", cfg.CacheDBPath)
		}
		a.cache = c
	}
	return a, nil
}

// SetLogger installs a debug sink used only when cfg.Debug is set, the
// teacher's own "if a.log != nil" convention.
func (a *Analyzer) SetLogger(f func(format string, args ...interface{})) { a.log = f }

func (a *Analyzer) logf(format string, args ...interface{}) {
	if a.cfg.Debug && a.log != nil {
		a.log(format, args...)
	}
}

// Build runs C3 through C5, and C6 or C7 if cfg.RunFlowSensitive is
// set, over the given front-end. a.cfg is the read-only snapshot that
// the client chose in New; Build never mutates it.
func (a *Analyzer) Build(cfg frontend.CFG, pag frontend.PAG) error {
	a.pag = pag
	a.result = AnalysisResult{RunID: uuid.New().String()}

	t0 := time.Now()
	ander, err := andersen.New(pag, a.cfg.andersenConfig())
	if err != nil {
		return err
	}
	ander.SetLogger(a.log)
	andRes, err := ander.Solve()
	if err != nil {
		return err
	}
	a.andersenResult = andRes
	a.result.AndersenTime = time.Since(t0)
	a.logf("wpa: andersen solved in %s", a.result.AndersenTime)

	t1 := time.Now()
	mssa, err := memssa.Build(cfg, pag, andRes.GetPts, a.cfg.MemPartition)
	if err != nil {
		return err
	}
	a.mssa = mssa
	a.result.MemSSATime = time.Since(t1)

	t2 := time.Now()
	g := svfg.Build(cfg, pag, mssa)
	svfg.Optimize(g, cfg, pag, a.cfg.svfgOptConfig())
	a.svfgGraph = g
	a.result.SVFGTime = time.Since(t2)

	if !a.cfg.RunFlowSensitive {
		return nil
	}

	t3 := time.Now()
	if a.cfg.Versioned {
		vs, err := vfspta.New(pag, g, andRes.GetPts, a.cfg.vfsptaConfig())
		if err != nil {
			return err
		}
		vs.SetLogger(a.log)
		res, err := vs.Solve()
		if err != nil {
			return err
		}
		a.vfsResult = res
		a.result.Versioned = true
	} else {
		fs, err := fspta.New(pag, cfg, g, mssa, a.cfg.fsptaConfig())
		if err != nil {
			return err
		}
		fs.SetLogger(a.log)
		res, err := fs.Solve()
		if err != nil {
			return err
		}
		a.fsResult = res
	}
	a.result.FSTime = time.Since(t3)
	a.result.FlowSensitive = true

	return nil
}

// GetPts returns the most precise points-to set Build computed for a
// PAG node: the flow-sensitive (or versioned flow-sensitive) result if
// Build ran one, else the Andersen approximation.
func (a *Analyzer) GetPts(n nodeid.NodeID) bitset.PointsTo {
	switch {
	case a.vfsResult != nil:
		return a.vfsResult.GetPts(n)
	case a.fsResult != nil:
		return a.fsResult.GetPts(n)
	case a.andersenResult != nil:
		return a.andersenResult.GetPts(n)
	default:
		return bitset.Empty
	}
}

// Alias reports whether p and q may point to a common object,
// collapsing concurrent identical queries onto one computation via
// singleflight and consulting the sqlite-backed cache first when one
// is configured. This is the one place in the module concurrency is
// allowed to reach (§5): it sits entirely outside any solver's run()
// loop, which has already returned by the time a client calls this.
func (a *Analyzer) Alias(p, q nodeid.NodeID) bool {
	key := aliasKey(p, q)

	if a.cache != nil {
		if v, ok, err := a.cache.lookup(a.result.RunID, p, q); err == nil && ok {
			return v
		}
	}

	v, _, _ := a.single.Do(key, func() (interface{}, error) {
		pp := a.GetPts(p)
		qp := a.GetPts(q)
		result := pp.Intersects(&qp)
		if a.cache != nil {
			_ = a.cache.store(a.result.RunID, p, q, result)
		}
		return result, nil
	})

	return v.(bool)
}

func aliasKey(p, q nodeid.NodeID) string {
	if p > q {
		p, q = q, p
	}
	return fmt.Sprintf("%d:%d", p, q)
}

// DumpStat writes the pipeline's timing/run summary to w.
func (a *Analyzer) DumpStat(w io.Writer) error {
	_, err := fmt.Fprintf(w, "run=%s andersen=%s memssa=%s svfg=%s flow-sensitive=%v(versioned=%v) fs=%s\n",
		a.result.RunID, a.result.AndersenTime, a.result.MemSSATime, a.result.SVFGTime,
		a.result.FlowSensitive, a.result.Versioned, a.result.FSTime)
	return err
}

// DumpPts writes every tracked node's current points-to set to w using
// the same pretty-printer the debug logging path uses, gated behind
// cfg.Debug the way the teacher gates its own verbose dumps.
func (a *Analyzer) DumpPts(w io.Writer) error {
	if !a.cfg.Debug {
		return nil
	}
	return dumpPts(w, a)
}

// Result returns the summary Build stamped for this run.
func (a *Analyzer) Result() AnalysisResult { return a.result }

// Close tears the pipeline down leaf-first: SVFG, then MemSSA, then
// the Andersen result, then finally the PAG reference itself, plus the
// alias cache's own DB handle (outside the analysis pipeline's own
// dependency order, but it outlives every other field here, so it
// closes last).
func (a *Analyzer) Close() error {
	a.svfgGraph = nil
	a.fsResult = nil
	a.vfsResult = nil
	a.mssa = nil
	a.andersenResult = nil
	a.pag = nil
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
