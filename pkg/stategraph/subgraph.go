package stategraph

import "fmt"

// Subgraph wraps a compiled child graph with its own state type as a node
// of the parent graph. enter builds the child's input from the parent
// state; exit turns the child's final state into parent writes.
//
// The child runs in the parent's context without checkpoints, so a child
// node that suspends fails the parent node with ErrCheckpointerRequired.
//
// Example:
//
//	parent.AddNode("translate", stategraph.Subgraph(translator,
//	    func(p Doc) Translation { return Translation{Text: p.Body} },
//	    func(p Doc, c Translation) stategraph.Update[Doc] {
//	        return stategraph.Writes(body.Set(c.Result))
//	    }))
func Subgraph[P, C any](child *CompiledGraph[C], enter func(parent P) C, exit func(parent P, child C) Update[P], opts ...RunOption) NodeFunc[P] {
	if child == nil || enter == nil || exit == nil {
		panic("stategraph: subgraph requires a child graph, enter and exit")
	}
	return func(ctx Context, state P) (Update[P], error) {
		res, err := child.Run(ctx, enter(state), opts...)
		if err != nil {
			return Update[P]{}, fmt.Errorf("subgraph: %w", err)
		}
		return exit(state, res.State), nil
	}
}

// Embed wraps a compiled child graph sharing the parent's state type as a
// node. Whatever the child changes is returned as writes, computed by
// diffing the child's final state against its input.
func Embed[S any](child *CompiledGraph[S], opts ...RunOption) NodeFunc[S] {
	if child == nil {
		panic("stategraph: subgraph requires a child graph")
	}
	return func(ctx Context, state S) (Update[S], error) {
		res, err := child.Run(ctx, state, opts...)
		if err != nil {
			return Update[S]{}, fmt.Errorf("subgraph: %w", err)
		}
		return child.schema.Diff(state, res.State)
	}
}
