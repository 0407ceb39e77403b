// Command wpa-debug is a thin driver over package wpa: it takes a
// pre-built frontend.CFG/frontend.PAG pair (wiring a real go/ssa
// program into those interfaces is the front-end's job, out of this
// core's scope per SPEC_FULL.md §1) and prints the resulting stats and
// points-to dump. All real logic lives in package wpa; this package
// only wires flags to a Config and a front-end to Build.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/wpa"
)

func main() {
	var (
		flowSensitive = flag.Bool("flow-sensitive", false, "run the flow-sensitive solver (C6) after Andersen")
		versioned     = flag.Bool("versioned", false, "use the versioned flow-sensitive solver (C7) instead of C6")
		debug         = flag.Bool("v", false, "enable debug logging and pts dump")
		fsTimeLimit   = flag.Duration("fs-time-limit", 0, "analysis alarm for the flow-sensitive solver, 0 disables it")
		cacheDB       = flag.String("cache-db", "", "path to a sqlite alias-query cache, empty disables it")
	)
	flag.Parse()

	cfg := wpa.DefaultConfig()
	cfg.RunFlowSensitive = *flowSensitive
	cfg.Versioned = *versioned
	cfg.Debug = *debug
	cfg.FSTimeLimit = *fsTimeLimit
	cfg.CacheDBPath = *cacheDB

	a, err := wpa.New(cfg)
	if err != nil {
		log.Fatalf("wpa-debug: %v", err)
	}
	if cfg.Debug {
		a.SetLogger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		})
	}
	defer a.Close()

	cfgFrontend, pag := loadFrontend()

	start := time.Now()
	if err := a.Build(cfgFrontend, pag); err != nil {
		log.Fatalf("wpa-debug: build failed: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wpa-debug: built in %s\n", time.Since(start))

	if err := a.DumpStat(os.Stdout); err != nil {
		log.Fatalf("wpa-debug: %v", err)
	}
	if err := a.DumpPts(os.Stdout); err != nil {
		log.Fatalf("wpa-debug: %v", err)
	}
}

// loadFrontend is the one seam a real binary would replace with an
// actual go/ssa-backed frontend.CFG/frontend.PAG pair (built the way
// frontend/ssaadapter.go's SSANodeMap/CallGraphView are meant to be
// driven); this driver exists to exercise package wpa's wiring, not to
// reimplement the front-end SPEC_FULL.md §1 scopes out of this core.
func loadFrontend() (frontend.CFG, frontend.PAG) {
	panic("wpa-debug: no frontend wired; link a frontend.CFG/frontend.PAG built over go/ssa")
}
