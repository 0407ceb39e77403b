package vfspta

import (
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/svfg"
)

type objVer struct {
	obj nodeid.NodeID
	ver nodeid.Version
}

// reliance is the version-reliance graph of §4.7: once an object's
// points-to set grows at one version, versionReliance says which other
// versions of the same object must absorb that growth, and
// stmtReliance says which load/store locations must be rescheduled
// once a version they consume changes.
type reliance struct {
	versionReliance map[objVer][]nodeid.Version
	stmtReliance    map[objVer][]nodeid.LocID
}

// buildReliance walks every indirect edge l-o->l' once: whenever the
// yielded version at l differs from the consumed version at l' for the
// same object, that is a reliance edge. Every load/store whose own
// consume[l][o] equals v is recorded against (o, v) directly, covering
// "stmtReliance[o][v] = { l : l is a load or store and consume[l][o] = v }".
func buildReliance(g *svfg.Graph, l *labelling) *reliance {
	r := &reliance{
		versionReliance: make(map[objVer][]nodeid.Version),
		stmtReliance:    make(map[objVer][]nodeid.LocID),
	}

	seenEdge := make(map[[2]objVer]bool)

	for _, n := range g.Nodes() {
		for _, e := range g.OutEdges(n.ID) {
			if e.Class != svfg.Indirect {
				continue
			}
			dst := g.Node(e.Dst)
			if dst == nil {
				continue
			}
			srcLoc := nodeid.LocID(n.ID)
			dstLoc := nodeid.LocID(dst.ID)

			e.Label.ForEach(func(o nodeid.NodeID) {
				v := l.yieldVersion(srcLoc, o)
				vp := l.consumeVersion(dstLoc, o)
				if v == nodeid.InvalidVersion || vp == nodeid.InvalidVersion || v == vp {
					return
				}
				key := [2]objVer{{o, v}, {o, vp}}
				if seenEdge[key] {
					return
				}
				seenEdge[key] = true
				ov := objVer{o, v}
				r.versionReliance[ov] = append(r.versionReliance[ov], vp)
			})
		}

		if n.Kind == svfg.KindLoad || n.Kind == svfg.KindStore {
			loc := nodeid.LocID(n.ID)
			if ol, ok := l.loc[loc]; ok {
				for o := range ol.consume {
					v := l.consumeVersion(loc, o)
					if v == nodeid.InvalidVersion {
						continue
					}
					ov := objVer{o, v}
					r.stmtReliance[ov] = append(r.stmtReliance[ov], loc)
				}
			}
		}
	}

	return r
}
