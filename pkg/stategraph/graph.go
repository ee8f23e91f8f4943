package stategraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating state graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdge and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := stategraph.NewGraph(schema).
//	    AddNode("calculate_bmi", calculateBMI).
//	    AddNode("label_bmi", labelBMI).
//	    SetEntry("calculate_bmi").
//	    AddEdge("calculate_bmi", "label_bmi").
//	    AddEdge("label_bmi", stategraph.END)
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu      sync.RWMutex
	schema  *Schema[S]
	nodes   map[string]NodeFunc[S]
	order   []string
	edges   map[string][]string
	routers map[string]Router[S]
	sources []string
}

// NewGraph creates a new graph builder whose nodes write the fields
// declared in schema.
func NewGraph[S any](schema *Schema[S]) *Graph[S] {
	if schema == nil {
		panic("stategraph: schema cannot be nil")
	}
	return &Graph[S]{
		schema:  schema,
		nodes:   make(map[string]NodeFunc[S]),
		edges:   make(map[string][]string),
		routers: make(map[string]Router[S]),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is a reserved word (START, END, case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("stategraph: node ID cannot be empty")
	}

	switch strings.ToLower(id) {
	case "end", "__end__", "start", "__start__":
		panic(fmt.Sprintf("stategraph: node ID cannot be reserved word %q", id))
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("stategraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("stategraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	g.order = append(g.order, id)
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// from may be START; to may be END. Several edges from the same node fan
// out in the order they were added.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if from == END {
		panic("stategraph: END cannot have outgoing edges")
	}
	if to == START {
		panic("stategraph: START cannot be an edge target")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.noteSource(from)
	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge routes from a node through router. from may be START
// to choose the entry nodes from the initial state.
//
// A node can have either plain edges or a conditional edge, not both.
func (g *Graph[S]) AddConditionalEdge(from string, router Router[S]) *Graph[S] {
	if router == nil {
		panic("stategraph: router cannot be nil")
	}
	if from == END {
		panic("stategraph: END cannot have outgoing edges")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.routers[from]; exists {
		panic(fmt.Sprintf("stategraph: duplicate conditional edge from %s", from))
	}
	g.noteSource(from)
	g.routers[from] = router
	return g
}

// SetEntry designates an entry node. It is shorthand for AddEdge(START, id).
// Calling it more than once fans out to every entry.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	return g.AddEdge(START, id)
}

// noteSource records edge sources in first-seen order so compile errors
// come out in a stable order.
func (g *Graph[S]) noteSource(from string) {
	if _, hasEdges := g.edges[from]; hasEdges {
		return
	}
	if _, hasRouter := g.routers[from]; hasRouter {
		return
	}
	g.sources = append(g.sources, from)
}
