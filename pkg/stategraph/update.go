package stategraph

// Write is a single field write produced by a field descriptor.
type Write[S any] struct {
	field string
	apply func(*S)
}

// Field returns the name of the written field.
func (w Write[S]) Field() string { return w.field }

// Update is the partial update a node returns. The zero value writes nothing.
type Update[S any] struct {
	writes  []Write[S]
	suspend bool
	payload any
}

// Writes bundles field writes into an update. Writes to the same field
// apply in the order given.
func Writes[S any](ws ...Write[S]) Update[S] {
	return Update[S]{writes: ws}
}

// Suspend asks the executor to pause the thread and surface payload to the
// caller. The node is re-entered with the resume value once the thread is
// resumed; any writes it makes then are merged as usual.
func Suspend[S any](payload any) Update[S] {
	return Update[S]{suspend: true, payload: payload}
}

// With returns a copy of u with ws appended.
func (u Update[S]) With(ws ...Write[S]) Update[S] {
	out := make([]Write[S], 0, len(u.writes)+len(ws))
	out = append(out, u.writes...)
	u.writes = append(out, ws...)
	return u
}

// Fields returns the written field names, in write order, without repeats.
func (u Update[S]) Fields() []string {
	seen := make(map[string]bool, len(u.writes))
	names := make([]string, 0, len(u.writes))
	for _, w := range u.writes {
		if !seen[w.field] {
			seen[w.field] = true
			names = append(names, w.field)
		}
	}
	return names
}

// Suspended reports whether the update requests suspension.
func (u Update[S]) Suspended() bool { return u.suspend }

// IsEmpty reports whether the update neither writes nor suspends.
func (u Update[S]) IsEmpty() bool { return len(u.writes) == 0 && !u.suspend }
