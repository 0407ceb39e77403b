package memssa

import "github.com/svf-go/wpa/frontend"

// insertPHI places a phi for each (region, block) where two reaching
// defs of that region merge, by the standard iterated dominance
// frontier construction (Cytron et al., §4.4 step 2): seed the
// worklist with every block that defines the region, and whenever a
// block in the worklist's dominance frontier lacks a phi for the
// region, insert one and add that block to the worklist too (a phi is
// itself a def).
func insertPHI(cfg frontend.CFG, fn frontend.FuncID, fm *FuncMSSA) {
	for r := range fm.usedRegs {
		hasPhi := make(map[frontend.BlockID]bool)

		var worklist []frontend.BlockID
		for b := range fm.reg2BBMap[r] {
			worklist = append(worklist, b)
		}

		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]

			for _, d := range cfg.DominanceFrontier(b) {
				if hasPhi[d] {
					continue
				}
				hasPhi[d] = true
				if fm.Phis[d] == nil {
					fm.Phis[d] = make(map[RegionID]*PhiNode)
				}
				fm.Phis[d][r] = &PhiNode{Region: r, Block: d, Result: MRVer{Region: r, Def: PhiDef}}

				if !fm.reg2BBMap[r][d] {
					fm.reg2BBMap[r][d] = true
					worklist = append(worklist, d)
				}
			}
		}
	}
}
