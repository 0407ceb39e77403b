package memssa

import (
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/wpaerr"
)

// renameFault is panicked by topOfStack and recovered by SSARename,
// turning a missing reaching definition into an *wpaerr.Error instead
// of letting the DFS unwind with a bare nil-slice panic.
type renameFault struct{ region RegionID }

// SSARename is a standard Cytron et al. DFS over the dominator tree
// (§4.4 step 3): phi results and the entry chi are renamed (pushed) on
// block entry, mu operands read the top of their region's stack, chi
// results mint a fresh version and push, and on leaving a block
// exactly the versions pushed there are popped.
func SSARename(cfg frontend.CFG, fn frontend.FuncID, fm *FuncMSSA) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fault, ok := r.(renameFault)
			if !ok {
				panic(r)
			}
			err = wpaerr.NewInvariant("memssa", "no reaching definition for region %d during SSA rename", fault.region)
		}
	}()

	children := domTreeChildren(cfg, fn)
	stacks := make(map[RegionID][]MRVer)
	nextVer := make(map[RegionID]uint32)

	newVersion := func(r RegionID) MRVer {
		v := nextVer[r]
		nextVer[r]++
		return MRVer{Region: r, Version: nodeid.Version(v)}
	}

	topOfStack := func(r RegionID) MRVer {
		st := stacks[r]
		if len(st) == 0 {
			panic(renameFault{region: r})
		}
		return st[len(st)-1]
	}

	entry := cfg.EntryBlock(fn)

	var dfs func(b frontend.BlockID)
	dfs = func(b frontend.BlockID) {
		pushed := make(map[RegionID]int)

		if phis, ok := fm.Phis[b]; ok {
			for r, phi := range phis {
				mv := newVersion(r)
				mv.Def = PhiDef
				phi.Result = mv
				stacks[r] = append(stacks[r], mv)
				pushed[r]++
			}
		}
		if b == entry {
			for r, chi := range fm.EntryChi {
				mv := newVersion(r)
				mv.Def = EntryChi
				chi.Out = mv
				stacks[r] = append(stacks[r], mv)
				pushed[r]++
			}
		}

		for _, inst := range cfg.Instructions(b) {
			for _, mu := range fm.Mus[inst.Loc] {
				mu.Ver = topOfStack(mu.Ver.Region)
			}
			for _, chi := range fm.Chis[inst.Loc] {
				chi.In = topOfStack(chi.Out.Region)
				mv := newVersion(chi.Out.Region)
				mv.Def = chi.Out.Def
				chi.Out = mv
				stacks[chi.Out.Region] = append(stacks[chi.Out.Region], mv)
				pushed[chi.Out.Region]++
			}
		}

		if len(cfg.Succs(b)) == 0 {
			for r, mu := range fm.RetMu {
				mu.Ver = topOfStack(r)
			}
		}

		for _, s := range cfg.Succs(b) {
			phis, ok := fm.Phis[s]
			if !ok {
				continue
			}
			preds := cfg.Preds(s)
			idx := -1
			for i, p := range preds {
				if p == b {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}
			for r, phi := range phis {
				for len(phi.Operands) <= idx {
					phi.Operands = append(phi.Operands, MRVer{})
				}
				phi.Operands[idx] = topOfStack(r)
			}
		}

		for _, c := range children[b] {
			dfs(c)
		}

		for r, n := range pushed {
			stacks[r] = stacks[r][:len(stacks[r])-n]
		}
	}

	dfs(entry)
	return nil
}

// domTreeChildren inverts cfg.IDom over fn's blocks into a
// parent -> children adjacency used to drive the rename DFS.
func domTreeChildren(cfg frontend.CFG, fn frontend.FuncID) map[frontend.BlockID][]frontend.BlockID {
	children := make(map[frontend.BlockID][]frontend.BlockID)
	entry := cfg.EntryBlock(fn)
	for _, b := range cfg.Blocks(fn) {
		if b == entry {
			continue
		}
		p := cfg.IDom(b)
		children[p] = append(children[p], b)
	}
	return children
}
