package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comalice/framesync"
)

// DOTExporter renders the pump's pipeline transition table.
type DOTExporter struct{}

// ExportDOT generates Graphviz DOT source for edges, highlighting current.
// Parallel edges between the same pair of states are merged into one label.
func (v *DOTExporter) ExportDOT(edges []framesync.Edge, current framesync.PipelineState) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Pipeline {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, fontsize=10, style=rounded];\n")
	buf.WriteString("  edge [fontsize=9];\n")

	for _, s := range states(edges) {
		style := ""
		switch {
		case s == current:
			style = " style=filled fillcolor=lightgreen"
		case s == framesync.Terminated:
			style = " shape=doublecircle"
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", s.String(), s.String(), style)
	}

	for _, e := range mergeEdges(edges) {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the transition table to JSON with readable names.
func (v *DOTExporter) ExportJSON(edges []framesync.Edge) ([]byte, error) {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, Edge{From: e.From.String(), To: e.To.String(), Label: e.Event.String()})
	}
	return json.MarshalIndent(out, "", "  ")
}

// Edge represents a rendered transition edge.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"event"`
}

// states returns every state mentioned by edges in first-seen order.
func states(edges []framesync.Edge) []framesync.PipelineState {
	seen := make(map[framesync.PipelineState]bool)
	var out []framesync.PipelineState
	add := func(s framesync.PipelineState) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, e := range edges {
		add(e.From)
		add(e.To)
	}
	return out
}

func mergeEdges(edges []framesync.Edge) []Edge {
	type pair struct{ from, to framesync.PipelineState }
	index := make(map[pair]int)
	var out []Edge
	for _, e := range edges {
		k := pair{e.From, e.To}
		if i, ok := index[k]; ok {
			out[i].Label += ", " + e.Event.String()
			continue
		}
		index[k] = len(out)
		out = append(out, Edge{From: e.From.String(), To: e.To.String(), Label: e.Event.String()})
	}
	return out
}
