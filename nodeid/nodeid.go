// Package nodeid defines the dense integer identifiers shared by every
// component of the analysis core: NodeID for PAG/SVFG nodes, LocID for
// ICFG locations, CallsiteID for call sites, and Version/MeldVersion
// for MemSSA and the versioned flow-sensitive solver.
package nodeid

import "fmt"

// NodeID identifies a PAG or SVFG node. Zero is reserved and never
// denotes a real node (mirrors the teacher's "nodeid 0 for
// non-pointerlike variables" convention).
type NodeID uint32

func (id NodeID) String() string { return fmt.Sprintf("n%d", uint32(id)) }

// Valid reports whether id denotes a real node.
func (id NodeID) Valid() bool { return id != 0 }

// LocID identifies an ICFG location (a statement or basic-block edge)
// that the data-flow points-to store and the SVFG key on.
type LocID uint32

func (id LocID) String() string { return fmt.Sprintf("l%d", uint32(id)) }

// CallsiteID identifies a call site, used to tag CallDirect/RetDirect
// and CallIndirect/RetIndirect edges so the optimizer and the
// on-the-fly call graph can correlate actual/formal pairs.
type CallsiteID uint32

func (id CallsiteID) String() string { return fmt.Sprintf("cs%d", uint32(id)) }

// Version numbers an MRVer within a function. They are dense and start
// at 0 per (MemRegion, function) per the MemSSA invariant.
type Version uint32

// InvalidVersion is the versioned store's sentinel meaning "no
// version consumed or yielded at this location for this object".
const InvalidVersion Version = 0

// MeldVersion is the pre-hashed bitvector label used by the versioned
// flow-sensitive solver's meld pass, before meld-to-version hashing
// collapses it to a dense Version.
type MeldVersion uint64
