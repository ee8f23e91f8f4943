package stategraph

// START is the virtual source node. Edges from START select the entry nodes.
const START = "__start__"

// END is the terminal node identifier.
// Use this as an edge target or router label to end a branch.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and the state merged before the
// current step, and return a partial update. The state is a private copy;
// mutating it has no effect on other nodes.
//
// Example:
//
//	func increment(ctx stategraph.Context, s Counter) (stategraph.Update[Counter], error) {
//	    return stategraph.Writes(count.Set(s.Count + 1)), nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (Update[S], error)

// Cloner lets a state type provide its own deep copy for fan-out branches.
// States that don't implement it are copied through a JSON round trip.
type Cloner[S any] interface {
	Clone() S
}
