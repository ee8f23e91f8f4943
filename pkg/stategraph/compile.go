package stategraph

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Every problem found is reported in a single *ConfigError.
//
// Validation checks:
//  1. At least one edge leaves START
//  2. Edge sources and targets reference existing nodes or END
//  3. Every router label resolves to a node or END, and every router
//     mapping names a declared label
//  4. No node mixes plain and conditional edges
//  5. Every node has an outgoing edge
//  6. END is reachable from START
//
// Unreachable nodes (not reachable from START) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1. Entry
	if len(g.edges[START]) == 0 && g.routers[START] == nil {
		errs = append(errs, ErrNoEntryPoint)
	}

	// 2. Plain edges
	for _, from := range g.sources {
		if from != START && !g.isNode(from) {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range g.edges[from] {
			if to != END && !g.isNode(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	// 3. Routers
	routes := make(map[string]*route[S], len(g.routers))
	for _, from := range g.sources {
		router, ok := g.routers[from]
		if !ok {
			continue
		}
		r, routeErrs := g.resolveRoute(from, router)
		errs = append(errs, routeErrs...)
		routes[from] = r
	}

	for _, id := range g.order {
		_, hasEdges := g.edges[id]
		_, hasRouter := g.routers[id]
		switch {
		case hasEdges && hasRouter:
			// 4. Mixed edges
			errs = append(errs, fmt.Errorf("%w: %s", ErrMixedEdges, id))
		case !hasEdges && !hasRouter:
			// 5. Dead ends
			errs = append(errs, fmt.Errorf("%w: %s", ErrDeadEnd, id))
		}
	}
	if len(g.edges[START]) > 0 && g.routers[START] != nil {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMixedEdges, START))
	}

	// 6. Path to END
	reachable := g.findReachable(routes)
	if len(errs) == 0 && !reachable[END] {
		errs = append(errs, ErrNoPathToEnd)
	}

	g.warnUnreachableNodes(reachable)

	if len(errs) > 0 {
		return nil, &ConfigError{Errs: errs}
	}

	return g.buildCompiledGraph(routes), nil
}

func (g *Graph[S]) isNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// resolveRoute turns a router's label set into a label -> target table.
func (g *Graph[S]) resolveRoute(from string, router Router[S]) (*route[S], []error) {
	var errs []error
	if from != START && !g.isNode(from) {
		errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
	}

	labels := router.Labels()
	if len(labels) == 0 {
		errs = append(errs, fmt.Errorf("%w: conditional edge from %s", ErrEmptyDomain, from))
	}

	r := &route[S]{router: router, labels: labels, table: make(map[string]string, len(labels))}
	for _, label := range labels {
		target, ok := router.Mapping(label)
		switch {
		case ok:
		case label == END || g.isNode(label):
			target = label
		case router.Fallback() != "":
			target = router.Fallback()
		default:
			errs = append(errs, fmt.Errorf("%w: %q from %s", ErrUnmappedLabel, label, from))
			continue
		}
		if target != END && !g.isNode(target) {
			errs = append(errs, fmt.Errorf("%w: route %q from %s targets '%s'", ErrNodeNotFound, label, from, target))
			continue
		}
		r.table[label] = target
	}
	for _, label := range router.Mapped() {
		if !slices.Contains(labels, label) {
			errs = append(errs, fmt.Errorf("%w: %q from %s", ErrUndeclaredLabel, label, from))
		}
	}
	return r, errs
}

// findReachable returns every node (and END) reachable from START.
func (g *Graph[S]) findReachable(routes map[string]*route[S]) map[string]bool {
	reachable := map[string]bool{START: true}
	queue := []string{START}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		targets := g.edges[current]
		if r, ok := routes[current]; ok {
			targets = r.targets()
		}
		for _, t := range targets {
			if !reachable[t] {
				reachable[t] = true
				if t != END {
					queue = append(queue, t)
				}
			}
		}
	}

	return reachable
}

// warnUnreachableNodes logs warnings for nodes not reachable from START.
func (g *Graph[S]) warnUnreachableNodes(reachable map[string]bool) {
	for _, id := range g.order {
		if !reachable[id] {
			slog.Warn("node is unreachable from entry", "node_id", id)
		}
	}
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph(routes map[string]*route[S]) *CompiledGraph[S] {
	nodes := maps.Clone(g.nodes)

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = slices.Clone(targets)
	}

	cg := &CompiledGraph[S]{
		schema:       g.schema,
		nodes:        nodes,
		order:        slices.Clone(g.order),
		edges:        edges,
		routes:       routes,
		successors:   make(map[string][]string),
		predecessors: make(map[string][]string),
	}

	for _, from := range append([]string{START}, g.order...) {
		targets := edges[from]
		if r, ok := routes[from]; ok {
			targets = r.targets()
		}
		for _, to := range targets {
			if !slices.Contains(cg.successors[from], to) {
				cg.successors[from] = append(cg.successors[from], to)
			}
			if !slices.Contains(cg.predecessors[to], from) {
				cg.predecessors[to] = append(cg.predecessors[to], from)
			}
		}
	}

	return cg
}
