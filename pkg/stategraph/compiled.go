package stategraph

import "slices"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// runs on different threads. The graph structure cannot be modified after
// compilation.
//
// Use the introspection methods (NodeIDs, Successors, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph[S any] struct {
	schema *Schema[S]
	nodes  map[string]NodeFunc[S]
	order  []string
	edges  map[string][]string
	routes map[string]*route[S]

	// Pre-computed for efficient lookup
	successors   map[string][]string
	predecessors map[string][]string
}

// route is a router together with its compile-time label table.
type route[S any] struct {
	router Router[S]
	labels []string
	table  map[string]string
}

// targets returns the distinct route targets in label order.
func (r *route[S]) targets() []string {
	var out []string
	for _, l := range r.labels {
		t, ok := r.table[l]
		if ok && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Schema returns the state schema the graph merges with.
func (cg *CompiledGraph[S]) Schema() *Schema[S] {
	return cg.schema
}

// EntryPoints returns the nodes reachable directly from START.
// For a conditional entry, every possible target is returned.
func (cg *CompiledGraph[S]) EntryPoints() []string {
	return slices.Clone(cg.successors[START])
}

// NodeIDs returns all node identifiers in declaration order.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	return slices.Clone(cg.order)
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns every node (or END) that can follow id, including
// all possible targets of a conditional edge.
// Returns nil for END or unknown nodes.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return slices.Clone(cg.successors[id])
}

// Predecessors returns the node IDs (or START) that have edges to the given node.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return slices.Clone(cg.predecessors[id])
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, ok := cg.routes[id]
	return ok
}

// RouteLabels returns the label -> target table of a conditional edge,
// or nil if the node has none.
func (cg *CompiledGraph[S]) RouteLabels(id string) map[string]string {
	r, ok := cg.routes[id]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(r.table))
	for l, t := range r.table {
		out[l] = t
	}
	return out
}

// IsForkNode returns true if the node activates more than one node at
// once through plain edges.
func (cg *CompiledGraph[S]) IsForkNode(id string) bool {
	n := 0
	for _, t := range cg.edges[id] {
		if t != END {
			n++
		}
	}
	return n > 1
}

// IsJoinNode returns true if more than one node (or START) leads into it.
func (cg *CompiledGraph[S]) IsJoinNode(id string) bool {
	return len(cg.predecessors[id]) > 1
}

// getNode returns the node function for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}
