package wpa

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"

	"github.com/svf-go/wpa/nodeid"
)

// dumpPts writes every PAG node's current points-to set, pretty-printed
// with pp the way the teacher's own debug dumps favor a structural
// printer over ad hoc Fprintf chains. It always reads through
// Analyzer.GetPts, so it reports whichever result (versioned
// flow-sensitive, plain flow-sensitive, or the Andersen approximation)
// is the most precise one Build actually computed, without needing to
// know which backend that was.
func dumpPts(w io.Writer, a *Analyzer) error {
	if a.pag == nil {
		return nil
	}
	for i := 1; i < a.pag.NumNodes(); i++ {
		id := nodeid.NodeID(i)
		pts := a.GetPts(id)
		if pts.IsEmpty() {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s => %s\n", id, pp.Sprint(pts.String())); err != nil {
			return err
		}
	}
	return nil
}
