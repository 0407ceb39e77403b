// Package cgraph implements the constraint graph and its SCC engine
// (component C2): PAG edges translated one-for-one into typed
// constraint edges, a union-find keeping rep(n) = find(n), and
// Nuutila's variant of Tarjan's SCC algorithm used by the Andersen
// solver's wave-diff outer loop.
package cgraph

import "github.com/svf-go/wpa/nodeid"

// EdgeKind distinguishes the five constraint-edge shapes translated
// from PAG.
type EdgeKind int

const (
	Addr EdgeKind = iota
	Copy
	Gep
	LoadCG
	StoreCG
)

func (k EdgeKind) String() string {
	switch k {
	case Addr:
		return "addr"
	case Copy:
		return "copy"
	case Gep:
		return "gep"
	case LoadCG:
		return "load"
	case StoreCG:
		return "store"
	default:
		return "?"
	}
}

// GepAttr carries the field offset and variance of a Gep edge. A nil
// *GepAttr on a direct edge means the edge is a plain Copy.
type GepAttr struct {
	Offset  uint32
	Variant bool // true: VariantGep (unknown offset, forces field-insensitivity)
}

// ConstraintNode mirrors one PAG node. It keeps four segregated
// in/out edge sets (addr, direct [copy+gep], load, store) so that
// copy/gep processing and load/store processing never scan unrelated
// edges, and a union-find parent so that after every mutation
// rep(n) = find(n) holds.
type ConstraintNode struct {
	ID  nodeid.NodeID
	par nodeid.NodeID // union-find parent; par == ID at a root

	AddrIn  map[nodeid.NodeID]bool    // obj --Addr--> this
	DirectIn map[nodeid.NodeID]*GepAttr // src --Copy/Gep--> this
	LoadIn  map[nodeid.NodeID]bool    // this is the value q of a load "*p -> q": edge keyed by pointer p
	StoreIn map[nodeid.NodeID]bool    // this is the value q of a store "q -> *p": edge keyed by pointer p

	AddrOut   map[nodeid.NodeID]bool
	DirectOut map[nodeid.NodeID]*GepAttr
	LoadOut   map[nodeid.NodeID]bool // this is the pointer p of a load "*p -> q": edge keyed by value q
	StoreOut  map[nodeid.NodeID]bool // this is the pointer p of a store "q -> *p": edge keyed by value q

	FieldInsensitive bool
	PWC              bool // set once this node is (or absorbed into) a positive-weight cycle
}

func newNode(id nodeid.NodeID) *ConstraintNode {
	return &ConstraintNode{
		ID:        id,
		par:       id,
		AddrIn:    map[nodeid.NodeID]bool{},
		DirectIn:  map[nodeid.NodeID]*GepAttr{},
		LoadIn:    map[nodeid.NodeID]bool{},
		StoreIn:   map[nodeid.NodeID]bool{},
		AddrOut:   map[nodeid.NodeID]bool{},
		DirectOut: map[nodeid.NodeID]*GepAttr{},
		LoadOut:   map[nodeid.NodeID]bool{},
		StoreOut:  map[nodeid.NodeID]bool{},
	}
}

// Graph is the whole constraint graph, indexed densely by NodeID.
type Graph struct {
	nodes []*ConstraintNode // nodes[0] is unused, mirrors the reserved zero NodeID
}

// New returns a graph with n pre-allocated node slots (n includes the
// reserved id 0).
func New(n int) *Graph {
	g := &Graph{nodes: make([]*ConstraintNode, n)}
	for i := 1; i < n; i++ {
		g.nodes[i] = newNode(nodeid.NodeID(i))
	}
	return g
}

// Grow ensures the graph has at least n node slots, creating any new
// ones, for callers that mint NodeIDs incrementally.
func (g *Graph) Grow(n int) {
	for len(g.nodes) < n {
		id := nodeid.NodeID(len(g.nodes))
		g.nodes = append(g.nodes, newNode(id))
	}
}

// Node returns the (possibly non-representative) node for id.
func (g *Graph) Node(id nodeid.NodeID) *ConstraintNode { return g.nodes[id] }

// NumNodes reports the number of node slots, including id 0.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Find returns the representative of id's equivalence class, applying
// path compression. After every graph mutation, rep(n) = find(n) must
// hold for every node n.
func (g *Graph) Find(id nodeid.NodeID) nodeid.NodeID {
	n := g.nodes[id]
	if n.par == id {
		return id
	}
	root := g.Find(n.par)
	n.par = root // path compression
	return root
}

// union makes b's representative a child of a's, returning the new
// rep. Callers are responsible for migrating b's edges and points-to
// set into the surviving rep (see MergeSCC).
func (g *Graph) union(a, b nodeid.NodeID) nodeid.NodeID {
	ra, rb := g.Find(a), g.Find(b)
	if ra == rb {
		return ra
	}
	// Lowest-id node is always the representative, matching the SCC
	// merge rule in §4.2.
	if rb < ra {
		ra, rb = rb, ra
	}
	g.nodes[rb].par = ra
	return ra
}

// AddAddr adds an Addr edge obj --Addr--> ptr ("ptr = &obj").
func (g *Graph) AddAddr(ptr, obj nodeid.NodeID) {
	ptr, obj = g.Find(ptr), g.Find(obj)
	g.nodes[ptr].AddrIn[obj] = true
	g.nodes[obj].AddrOut[ptr] = true
}

// AddCopy adds a Copy edge src --Copy--> dst ("dst = src").
func (g *Graph) AddCopy(dst, src nodeid.NodeID) bool {
	return g.addDirect(dst, src, nil)
}

// AddGep adds a Gep edge src --Gep[offset]--> dst ("dst = &src.#offset"),
// or a variant Gep when offset is not statically known.
func (g *Graph) AddGep(dst, src nodeid.NodeID, offset uint32, variant bool) bool {
	return g.addDirect(dst, src, &GepAttr{Offset: offset, Variant: variant})
}

func (g *Graph) addDirect(dst, src nodeid.NodeID, attr *GepAttr) bool {
	dst, src = g.Find(dst), g.Find(src)
	if dst == src {
		return false // trivial self-edge, e.g. after an SCC merge
	}
	if _, exists := g.nodes[dst].DirectIn[src]; exists {
		return false
	}
	g.nodes[dst].DirectIn[src] = attr
	g.nodes[src].DirectOut[dst] = attr
	return true
}

// AddLoad adds a Load edge for "dst = *ptr", keyed by the pointer node
// ptr on one side and the loaded value dst on the other.
func (g *Graph) AddLoad(dst, ptr nodeid.NodeID) bool {
	dst, ptr = g.Find(dst), g.Find(ptr)
	if g.nodes[ptr].LoadOut[dst] {
		return false
	}
	g.nodes[ptr].LoadOut[dst] = true
	g.nodes[dst].LoadIn[ptr] = true
	return true
}

// AddStore adds a Store edge for "*ptr = src", keyed by the pointer
// node ptr on one side and the stored value src on the other.
func (g *Graph) AddStore(ptr, src nodeid.NodeID) bool {
	ptr, src = g.Find(ptr), g.Find(src)
	if g.nodes[ptr].StoreOut[src] {
		return false
	}
	g.nodes[ptr].StoreOut[src] = true
	g.nodes[src].StoreIn[ptr] = true
	return true
}
