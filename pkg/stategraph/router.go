package stategraph

// Router picks the successors of a node from a closed set of labels.
// Use Route to build one.
type Router[S any] interface {
	// Labels returns every label the router may return.
	Labels() []string
	// Mapping returns the explicit target for label, if one was set.
	Mapping(label string) (string, bool)
	// Mapped returns every label given an explicit target.
	Mapped() []string
	// Fallback returns the target for labels with no node of their own.
	Fallback() string
	// Choose evaluates the routing function against the merged state.
	Choose(ctx Context, state S) string
}

// Branch is a Router over the typed label set L.
type Branch[S any, L ~string] struct {
	fn       func(ctx Context, state S) L
	domain   []L
	targets  map[L]string
	mapped   []L
	fallback string
}

// Route builds a router from fn and the labels it can return. A label
// resolves to its explicit target (To), otherwise to the node or END of
// the same name, otherwise to the fallback (Otherwise). Compile rejects
// labels that resolve to nothing and mappings for labels outside the domain.
//
// Example:
//
//	type verdict string
//	graph.AddConditionalEdge("evaluate", stategraph.Route(
//	    func(ctx stategraph.Context, s Tweet) verdict { ... },
//	    "approved", "needs_improvement").
//	    To("approved", stategraph.END).
//	    To("needs_improvement", "optimize"))
func Route[S any, L ~string](fn func(ctx Context, state S) L, domain ...L) *Branch[S, L] {
	if fn == nil {
		panic("stategraph: router function cannot be nil")
	}
	return &Branch[S, L]{
		fn:      fn,
		domain:  domain,
		targets: make(map[L]string),
	}
}

// To maps label to target node (or END).
func (b *Branch[S, L]) To(label L, target string) *Branch[S, L] {
	if _, seen := b.targets[label]; !seen {
		b.mapped = append(b.mapped, label)
	}
	b.targets[label] = target
	return b
}

// Otherwise sets the target for labels that have no node of their own.
func (b *Branch[S, L]) Otherwise(target string) *Branch[S, L] {
	b.fallback = target
	return b
}

// Labels implements Router.
func (b *Branch[S, L]) Labels() []string {
	labels := make([]string, len(b.domain))
	for i, l := range b.domain {
		labels[i] = string(l)
	}
	return labels
}

// Mapping implements Router.
func (b *Branch[S, L]) Mapping(label string) (string, bool) {
	t, ok := b.targets[L(label)]
	return t, ok
}

// Mapped implements Router.
func (b *Branch[S, L]) Mapped() []string {
	labels := make([]string, len(b.mapped))
	for i, l := range b.mapped {
		labels[i] = string(l)
	}
	return labels
}

// Fallback implements Router.
func (b *Branch[S, L]) Fallback() string {
	return b.fallback
}

// Choose implements Router.
func (b *Branch[S, L]) Choose(ctx Context, state S) string {
	return string(b.fn(ctx, state))
}
