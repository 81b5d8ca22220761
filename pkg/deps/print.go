package deps

import (
	"fmt"
	"io"
	"strings"
)

// PrintTree writes the dependency tree with one line per edge, indenting
// by depth. Nodes already printed elsewhere in the tree are noted rather
// than repeated.
func PrintTree(w io.Writer, root *Node) {
	printTree(w, root, map[string]bool{}, 0)
}

func printTree(w io.Writer, n *Node, seen map[string]bool, depth int) {
	prefix := strings.Repeat(". ", depth)
	for _, e := range n.Edges {
		t := e.To
		label := t.Name + extrasSuffix(t.Extras)
		switch {
		case t.Cycle:
			fmt.Fprintf(w, "%s%s (cycle)%s\n", prefix, label, markerSuffix(e.Marker))
			continue
		case t.Unresolved:
			fmt.Fprintf(w, "%s%s (unresolved: %s) via %s\n", prefix, label, t.Reason, e.Constraint)
			continue
		}

		key := nodeKey(t.Name, t.Version, t.Extras)
		if seen[key] {
			fmt.Fprintf(w, "%s%s (==%s) (already listed)%s\n", prefix, label, t.Version, markerSuffix(e.Marker))
			continue
		}
		seen[key] = true

		notes := ""
		if !t.HasSdist {
			notes += " no sdist"
		}
		if !t.HasBdist {
			notes += " no whl"
		}
		fmt.Fprintf(w, "%s%s (==%s)%s via %s%s\n", prefix, label, t.Version, markerSuffix(e.Marker), e.Constraint, notes)
		printTree(w, t, seen, depth+1)
	}
}

// PrintFlat writes the tree postorder as pin lines (deepest deps first),
// each resolved node exactly once: a ready-to-use requirements listing.
func PrintFlat(w io.Writer, root *Node) {
	printFlat(w, root, map[string]bool{})
}

func printFlat(w io.Writer, n *Node, seen map[string]bool) {
	for _, e := range n.Edges {
		t := e.To
		if t.Cycle || t.Unresolved {
			continue
		}
		key := nodeKey(t.Name, t.Version, t.Extras)
		if seen[key] {
			continue
		}
		seen[key] = true
		printFlat(w, t, seen)
		fmt.Fprintf(w, "%s%s==%s\n", t.Name, extrasSuffix(t.Extras), t.Version)
	}
}

func extrasSuffix(extras []string) string {
	if len(extras) == 0 {
		return ""
	}
	return "[" + strings.Join(extras, ",") + "]"
}

func markerSuffix(marker string) string {
	if marker == "" {
		return ""
	}
	return " ; " + marker
}
