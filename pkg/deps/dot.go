package deps

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts a dependency tree to Graphviz DOT. Resolved nodes are
// boxes labeled name==version; unresolved nodes are dashed, cycle
// markers grey. Edges carry the declared constraint.
func ToDOT(root *Node) string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	nodes := map[string]string{} // id -> attr line
	var edges []string
	collectDOT(root, nodes, &edges, map[string]bool{})

	for _, id := range sortedKeys(nodes) {
		fmt.Fprintf(&buf, "  %s;\n", nodes[id])
	}
	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %s;\n", e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func dotID(n *Node) string {
	switch {
	case n.Cycle:
		return n.Name
	case n.Unresolved:
		return n.Name + " (unresolved)"
	}
	return n.Name + extrasSuffix(n.Extras) + "==" + n.Version
}

func collectDOT(n *Node, nodes map[string]string, edges *[]string, seen map[string]bool) {
	id := dotID(n)
	if seen[id] {
		return
	}
	seen[id] = true

	attrs := []string{fmt.Sprintf("label=%q", id)}
	switch {
	case n.Cycle:
		attrs = append(attrs, "fillcolor=lightgrey")
	case n.Unresolved:
		attrs = append(attrs, `style="rounded,filled,dashed"`)
	case !n.HasSdist:
		attrs = append(attrs, "fillcolor=mistyrose")
	}
	nodes[id] = fmt.Sprintf("%q [%s]", id, strings.Join(attrs, ", "))

	for _, e := range n.Edges {
		label := e.Constraint
		*edges = append(*edges, fmt.Sprintf("%q -> %q [label=%q]", id, dotID(e.To), label))
		collectDOT(e.To, nodes, edges, seen)
	}
}

// sortedKeys keeps DOT output deterministic independent of traversal
// order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RenderSVG renders a DOT graph to SVG with Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
