package stategraph

import (
	"fmt"
	"sort"
	"strings"
)

// Mermaid renders the graph as a Mermaid flowchart.
// START and END are drawn as circles; conditional edges are dotted and
// carry their route label.
func (cg *CompiledGraph[S]) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", START, START))
	for _, id := range cg.order {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", sanitizeMermaidID(id), id))
	}
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", END, END))

	for _, from := range append([]string{START}, cg.order...) {
		safeFrom := sanitizeMermaidID(from)
		if r, ok := cg.routes[from]; ok {
			labels := make([]string, 0, len(r.table))
			for l := range r.table {
				labels = append(labels, l)
			}
			sort.Strings(labels)
			for _, l := range labels {
				safeLabel := strings.ReplaceAll(l, "\"", "'")
				sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeFrom, safeLabel, sanitizeMermaidID(r.table[l])))
			}
			continue
		}
		for _, to := range cg.edges[from] {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeFrom, sanitizeMermaidID(to)))
		}
	}

	return sb.String()
}

// sanitizeMermaidID replaces characters Mermaid treats as syntax.
func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '/', ':', '(', ')', '[', ']', '{', '}':
			return '_'
		}
		return r
	}, id)
}
