package svfg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/s2"

	"github.com/svf-go/wpa/bitset"
	"github.com/svf-go/wpa/nodeid"
	"github.com/svf-go/wpa/wpaerr"
)

// Write serializes g to w in the textual format of §6: an s2-framed
// stream of two newline-separated sections, "__Nodes__" then
// "__Edges__".
func Write(g *Graph, w io.Writer) error {
	sw := s2.NewWriter(w)
	defer sw.Close()

	if _, err := fmt.Fprintln(sw, "__Nodes__"); err != nil {
		return wpaerr.NewIO("svfg", err, "writing node section header")
	}
	for _, n := range g.Nodes() {
		if err := writeNode(sw, n); err != nil {
			return wpaerr.NewIO("svfg", err, "writing node %d", n.ID)
		}
	}

	if _, err := fmt.Fprintln(sw); err != nil {
		return wpaerr.NewIO("svfg", err, "writing section separator")
	}
	if _, err := fmt.Fprintln(sw, "__Edges__"); err != nil {
		return wpaerr.NewIO("svfg", err, "writing edge section header")
	}
	for _, n := range g.Nodes() {
		for _, e := range g.OutEdges(n.ID) {
			if err := writeEdge(sw, e); err != nil {
				return wpaerr.NewIO("svfg", err, "writing edge %d=>%d", e.Src, e.Dst)
			}
		}
	}

	return sw.Flush()
}

func writeNode(w io.Writer, n *Node) error {
	ptsStr := func(p bitset.PointsTo) string {
		var sb strings.Builder
		first := true
		p.ForEach(func(id nodeid.NodeID) {
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			fmt.Fprintf(&sb, "%d", id)
		})
		return sb.String()
	}

	_, err := fmt.Fprintf(w, "SVFGNodeID: %d >= %s >= MVER: {MRVERID: %d MemRegion: pts{%s} MRVERSION: %d MSSADef: %s} >= ICFGNodeID: %d",
		n.ID, n.Kind, n.Ver.Region, ptsStr(bitset.Empty), n.Ver.Version, n.Ver.Def, n.Loc)
	if err != nil {
		return err
	}
	if n.Kind == KindPhi || n.Kind == KindMSSAPhi || n.Kind == KindInterPhi || n.Kind == KindInterMSSAPhi {
		var sb strings.Builder
		sb.WriteString(" >= OPVers: {")
		for i, ov := range n.OpVers {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "{%d:%d}", ov.Region, ov.Version)
		}
		sb.WriteByte('}')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

func writeEdge(w io.Writer, e *Edge) error {
	kind := edgeKindString(e)
	_, err := fmt.Fprintf(w, "srcSVFGNodeID: %d => dstSVFGNodeID: %d >= %s", e.Src, e.Dst, kind)
	if err != nil {
		return err
	}
	if e.Class == Indirect {
		_, err = fmt.Fprintf(w, " | MVER: {%d}", e.Callsite)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

func edgeKindString(e *Edge) string {
	cls := "Direct"
	if e.Class == Indirect {
		cls = "Indirect"
	}
	variant := "Intra"
	switch e.Variant {
	case CallVariant:
		variant = "Call"
	case RetVariant:
		variant = "Ret"
	case ThreadMHPVariant:
		variant = "ThreadMHP"
	}
	return cls + variant
}

// Read parses the stream Write produced back into a Graph. It restores
// each node's id and kind and each edge's endpoints, class and variant
// (§8 round-trip property); node versions, locations, OpVers, edge
// callsites and edge labels are not restored. Callers that need exact
// reconstruction should keep the MemSSA result alongside and call
// Build again instead of relying on Read for anything beyond
// debugging/caching raw topology.
func Read(r io.Reader) (*Graph, error) {
	sr := s2.NewReader(r)
	sc := bufio.NewScanner(sr)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	g := New()
	section := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "__Nodes__":
			section = "nodes"
			continue
		case line == "__Edges__":
			section = "edges"
			continue
		case line == "":
			continue
		}

		switch section {
		case "nodes":
			if err := readNodeLine(g, line); err != nil {
				return nil, err
			}
		case "edges":
			if err := readEdgeLine(g, line); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, wpaerr.NewIO("svfg", err, "reading SVFG stream")
	}
	return g, nil
}

func readNodeLine(g *Graph, line string) error {
	fields := strings.Split(line, ">=")
	if len(fields) < 2 {
		return wpaerr.NewIO("svfg", nil, "malformed node line: %q", line)
	}
	idStr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(fields[0]), "SVFGNodeID:"))
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return wpaerr.NewIO("svfg", err, "parsing node id in %q", line)
	}
	kindStr := strings.TrimSpace(fields[1])
	n := &Node{Kind: parseKind(kindStr)}
	g.nodes = append(g.nodes, nil)
	for len(g.nodes) <= id {
		g.nodes = append(g.nodes, nil)
	}
	n.ID = nodeid.NodeID(id)
	g.nodes[id] = n
	return nil
}

func parseKind(s string) NodeKind {
	for k := KindAddr; k <= KindDummyVersionProp; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindAddr
}

func readEdgeLine(g *Graph, line string) error {
	var src, dst int
	n, err := fmt.Sscanf(line, "srcSVFGNodeID: %d => dstSVFGNodeID: %d", &src, &dst)
	if err != nil || n != 2 {
		return wpaerr.NewIO("svfg", err, "parsing edge line %q", line)
	}
	class, variant := Direct, IntraVariant
	switch {
	case strings.Contains(line, "IndirectIntra"):
		class, variant = Indirect, IntraVariant
	case strings.Contains(line, "IndirectCall"):
		class, variant = Indirect, CallVariant
	case strings.Contains(line, "IndirectRet"):
		class, variant = Indirect, RetVariant
	case strings.Contains(line, "IndirectThreadMHP"):
		class, variant = Indirect, ThreadMHPVariant
	case strings.Contains(line, "DirectCall"):
		class, variant = Direct, CallVariant
	case strings.Contains(line, "DirectRet"):
		class, variant = Direct, RetVariant
	}
	g.AddEdge(&Edge{Src: nodeid.NodeID(src), Dst: nodeid.NodeID(dst), Class: class, Variant: variant})
	return nil
}
