package vfspta

import (
	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/frontend"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/svfg"
)

// objLabels holds the per-object meld bitvectors at one SVFG location:
// yield is the version this location produces for the object (only
// stores assign a fresh one; every other kind mirrors consume), and
// consume is the version this location reads.
type objLabels struct {
	yield   map[nodeid.NodeID]nodeid.MeldVersion
	consume map[nodeid.NodeID]nodeid.MeldVersion
}

// labelling is the pre-labelling + meld-labelling result for a whole
// SVFG: one objLabels per location, plus the meld-to-Version hash.
type labelling struct {
	loc map[nodeid.LocID]*objLabels

	// isDeltaConsume marks (loc, obj) pairs that got a pre-assigned
	// fresh consume label (delta nodes, §4.7): meld-labelling never
	// overwrites these.
	isDeltaConsume map[locObj]bool

	nextBit nodeid.MeldVersion

	// version hashes each distinct MeldVersion bitvector to a dense
	// Version id, assigned in first-seen order; 0 (InvalidVersion) is
	// reserved and never handed out.
	version map[nodeid.MeldVersion]nodeid.Version
}

type locObj struct {
	loc nodeid.LocID
	obj nodeid.NodeID
}

func newLabelling() *labelling {
	return &labelling{
		loc:            make(map[nodeid.LocID]*objLabels),
		isDeltaConsume: make(map[locObj]bool),
		nextBit:        1,
		version:        make(map[nodeid.MeldVersion]nodeid.Version),
	}
}

func (l *labelling) at(loc nodeid.LocID) *objLabels {
	ol, ok := l.loc[loc]
	if !ok {
		ol = &objLabels{
			yield:   make(map[nodeid.NodeID]nodeid.MeldVersion),
			consume: make(map[nodeid.NodeID]nodeid.MeldVersion),
		}
		l.loc[loc] = ol
	}
	return ol
}

func (l *labelling) freshBit() nodeid.MeldVersion {
	b := l.nextBit
	l.nextBit <<= 1
	return b
}

// isDeltaNode reports whether n is a "function entry with indirect
// callers or indirect-call return" per §4.7. No interface in
// `frontend` maps an object back to the set of functions that can
// reach it through an indirect call, so this is approximated: every
// FormalIn node (a function-entry chi, which must soundly account for
// callers this analysis cannot enumerate precisely) and every
// ActualOut node whose call site is indirect are treated as delta
// nodes. See DESIGN.md for the full justification.
func isDeltaNode(n *svfg.Node, pag frontend.PAG) bool {
	switch n.Kind {
	case svfg.KindFormalIn:
		return true
	case svfg.KindActualOut:
		for _, cs := range pag.IndirectCallsites() {
			if cs == n.Callsite {
				return true
			}
		}
	}
	return false
}

// computeLabelling runs the §4.7 pre-labelling and meld-labelling
// passes over g. anderPts is the whole-program (Andersen, C3) result:
// pre-labelling assigns fresh yield bits to a store's pointee objects
// using that flow-insensitive approximation, exactly as spec.md
// prescribes ("for each o in ander.pts(p)").
func computeLabelling(g *svfg.Graph, pag frontend.PAG, anderPts func(nodeid.NodeID) bitset.PointsTo) *labelling {
	l := newLabelling()

	// Pre-labelling.
	for _, n := range g.Nodes() {
		switch n.Kind {
		case svfg.KindStore:
			ol := l.at(nodeid.LocID(n.ID))
			anderPts(n.Stmt.Dst).ForEach(func(o nodeid.NodeID) {
				ol.yield[o] = l.freshBit()
			})
		default:
			if isDeltaNode(n, pag) {
				ol := l.at(nodeid.LocID(n.ID))
				for _, e := range g.OutEdges(n.ID) {
					if e.Class != svfg.Indirect {
						continue
					}
					e.Label.ForEach(func(o nodeid.NodeID) {
						if _, ok := ol.consume[o]; !ok {
							ol.consume[o] = l.freshBit()
							l.isDeltaConsume[locObj{nodeid.LocID(n.ID), o}] = true
						}
					})
				}
			}
		}
	}

	// Meld labelling: a FIFO worklist over SVFG nodes, melding each
	// indirect edge's source yield into the destination's consume
	// (skipping delta targets, whose consume is fixed by pre-labelling),
	// then mirroring non-store nodes' consume into their own yield so
	// they relay forward.
	queue := make([]nodeid.NodeID, 0, len(g.Nodes()))
	queued := make(map[nodeid.NodeID]bool)
	push := func(id nodeid.NodeID) {
		if !queued[id] {
			queued[id] = true
			queue = append(queue, id)
		}
	}
	for _, n := range g.Nodes() {
		push(n.ID)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		n := g.Node(id)
		if n == nil {
			continue
		}
		for _, e := range g.OutEdges(id) {
			if e.Class != svfg.Indirect {
				continue
			}
			dst := g.Node(e.Dst)
			if dst == nil {
				continue
			}
			dstLoc := nodeid.LocID(dst.ID)
			srcOl := l.at(nodeid.LocID(id))
			dstOl := l.at(dstLoc)

			e.Label.ForEach(func(o nodeid.NodeID) {
				if l.isDeltaConsume[locObj{dstLoc, o}] {
					return
				}
				srcYield, ok := srcOl.yield[o]
				if !ok {
					srcYield = srcOl.consume[o]
				}
				before := dstOl.consume[o]
				merged := before | srcYield
				if merged == before {
					return
				}
				dstOl.consume[o] = merged
				if dst.Kind != svfg.KindStore {
					dstOl.yield[o] = merged
				}
				push(e.Dst)
			})
		}
	}

	return l
}

// versionOf hashes a MeldVersion bitvector to a dense Version id,
// assigning the next free id the first time a distinct bitvector is
// seen.
func (l *labelling) versionOf(mv nodeid.MeldVersion) nodeid.Version {
	if mv == 0 {
		return nodeid.InvalidVersion
	}
	if v, ok := l.version[mv]; ok {
		return v
	}
	v := nodeid.Version(len(l.version) + 1)
	l.version[mv] = v
	return v
}

// consumeVersion and yieldVersion look up the dense Version a location
// consumes/yields for an object, defaulting to InvalidVersion when the
// location never touches that object (e.g. a non-delta, non-store node
// with no recorded meld label for it, which a load/store rule should
// never actually query).
func (l *labelling) consumeVersion(loc nodeid.LocID, o nodeid.NodeID) nodeid.Version {
	ol, ok := l.loc[loc]
	if !ok {
		return nodeid.InvalidVersion
	}
	mv, ok := ol.consume[o]
	if !ok {
		return nodeid.InvalidVersion
	}
	return l.versionOf(mv)
}

func (l *labelling) yieldVersion(loc nodeid.LocID, o nodeid.NodeID) nodeid.Version {
	ol, ok := l.loc[loc]
	if !ok {
		return nodeid.InvalidVersion
	}
	mv, ok := ol.yield[o]
	if !ok {
		return nodeid.InvalidVersion
	}
	return l.versionOf(mv)
}
