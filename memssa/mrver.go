package memssa

import "github.com/svf-go/wpa/nodeid"

// DefKind classifies the instruction that created an MRVer, mirroring
// §3's MemSSA entities: "def is ENTRYCHI | RETMU | CALLMU | CALLCHI |
// STORECHI | PHI".
type DefKind int

const (
	EntryChi DefKind = iota
	RetMu
	CallMu
	CallChi
	StoreChi
	PhiDef
)

func (k DefKind) String() string {
	switch k {
	case EntryChi:
		return "ENTRYCHI"
	case RetMu:
		return "RETMU"
	case CallMu:
		return "CALLMU"
	case CallChi:
		return "CALLCHI"
	case StoreChi:
		return "STORECHI"
	case PhiDef:
		return "PHI"
	default:
		return "?"
	}
}

// MRVer is one memory-region version: the triple (MR, version, def).
// Version is unique per (MemRegion, function) and each MRVer has
// exactly one defining site within that function.
type MRVer struct {
	Region  RegionID
	Version nodeid.Version
	Def     DefKind
}

// MU is a use of an MRVer at a load, a ret-mu, or a call-mu.
type MU struct {
	Loc nodeid.LocID
	Ver MRVer
}

// CHI is a def of a new MRVer from a prior one, at a store, an
// entry-chi, or a call-chi. Out is the fresh version it defines from In.
type CHI struct {
	Loc nodeid.LocID
	In  MRVer
	Out MRVer
}
