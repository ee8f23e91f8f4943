package stategraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// Policy controls how concurrent or successive writes to a field combine.
type Policy int

const (
	// Replace keeps the last write.
	Replace Policy = iota
	// Append concatenates written values onto the existing sequence.
	Append
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Replace:
		return "replace"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// FieldInfo describes a declared state field.
type FieldInfo struct {
	Name       string
	Policy     Policy
	Required   bool
	HasDefault bool
}

type field[S any] struct {
	info   FieldInfo
	isZero func(*S) bool
	fill   func(*S)
	diff   func(before, after *S) (Write[S], bool, error)
	// encode renders the net effect of writes to this field, taking the
	// field from before to after, as JSON that decode turns back into a write.
	encode func(before, after *S) (json.RawMessage, error)
	decode func(raw json.RawMessage) (Write[S], error)
}

// Schema declares the fields of a state type S and their merge policies.
// Declare every field before compiling a graph that uses the schema.
type Schema[S any] struct {
	fields map[string]*field[S]
	order  []string
}

// NewSchema creates an empty schema for state type S.
func NewSchema[S any]() *Schema[S] {
	return &Schema[S]{fields: make(map[string]*field[S])}
}

func (sc *Schema[S]) declare(f *field[S]) {
	if f.info.Name == "" {
		panic("stategraph: field name cannot be empty")
	}
	if _, exists := sc.fields[f.info.Name]; exists {
		panic(fmt.Sprintf("stategraph: duplicate field: %s", f.info.Name))
	}
	sc.fields[f.info.Name] = f
	sc.order = append(sc.order, f.info.Name)
}

// Fields returns the declared fields in declaration order.
func (sc *Schema[S]) Fields() []FieldInfo {
	infos := make([]FieldInfo, 0, len(sc.order))
	for _, name := range sc.order {
		infos = append(infos, sc.fields[name].info)
	}
	return infos
}

// Has reports whether name is a declared field.
func (sc *Schema[S]) Has(name string) bool {
	_, ok := sc.fields[name]
	return ok
}

// Validate checks that every required field holds a non-zero value.
func (sc *Schema[S]) Validate(state S) error {
	var errs []error
	for _, name := range sc.order {
		f := sc.fields[name]
		if f.info.Required && f.isZero(&state) {
			errs = append(errs, &StateError{Field: name, Err: ErrMissingField})
		}
	}
	return errors.Join(errs...)
}

// withDefaults fills zero-valued fields that declare a default.
func (sc *Schema[S]) withDefaults(state S) S {
	for _, name := range sc.order {
		f := sc.fields[name]
		if f.fill != nil && f.isZero(&state) {
			f.fill(&state)
		}
	}
	return state
}

// Apply merges an update into state by field policy and returns the result.
// Fields the update does not write keep their values. The input state is
// not modified.
func (sc *Schema[S]) Apply(state S, u Update[S]) (S, error) {
	for _, w := range u.writes {
		if _, ok := sc.fields[w.field]; !ok {
			return state, &StateError{Field: w.field, Err: ErrUndeclaredField}
		}
	}
	for _, w := range u.writes {
		w.apply(&state)
	}
	return state, nil
}

// Diff expresses the change from before to after as an update.
// Replace fields that differ become Set writes; append fields whose new
// value extends the old one become Add writes for the new tail.
func (sc *Schema[S]) Diff(before, after S) (Update[S], error) {
	var u Update[S]
	for _, name := range sc.order {
		w, changed, err := sc.fields[name].diff(&before, &after)
		if err != nil {
			return Update[S]{}, &StateError{Field: name, Err: err}
		}
		if changed {
			u.writes = append(u.writes, w)
		}
	}
	return u, nil
}

// Decode builds an update from a JSON object keyed by field name. Every
// present key becomes a write, including keys holding a zero value:
// replace fields are Set to the decoded value and append fields Add the
// decoded elements. Writes follow declaration order.
func (sc *Schema[S]) Decode(data []byte) (Update[S], error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Update[S]{}, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	for name := range raw {
		if _, ok := sc.fields[name]; !ok {
			return Update[S]{}, &StateError{Field: name, Err: ErrUndeclaredField}
		}
	}

	var u Update[S]
	for _, name := range sc.order {
		value, ok := raw[name]
		if !ok {
			continue
		}
		w, err := sc.fields[name].decode(value)
		if err != nil {
			return Update[S]{}, &StateError{Field: name, Err: err}
		}
		u.writes = append(u.writes, w)
	}
	return u, nil
}

// encode serializes the writes of u, as applied to state, into the form
// Decode reads back. Each written field appears once with its net effect.
func (sc *Schema[S]) encode(state S, u Update[S]) (json.RawMessage, error) {
	after, err := sc.Apply(state, u)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage)
	for _, name := range u.Fields() {
		raw, err := sc.fields[name].encode(&state, &after)
		if err != nil {
			return nil, &StateError{Field: name, Err: err}
		}
		out[name] = raw
	}
	return json.Marshal(out)
}

// Value is a Replace field of type T on state S.
type Value[S any, T any] struct {
	f   *field[S]
	ptr func(*S) *T
}

// ReplaceField declares a last-write-wins field. ptr must return the
// address of the field inside the given state.
func ReplaceField[S any, T any](sc *Schema[S], name string, ptr func(*S) *T) Value[S, T] {
	if ptr == nil {
		panic("stategraph: field accessor cannot be nil")
	}
	f := &field[S]{
		info:   FieldInfo{Name: name, Policy: Replace},
		isZero: func(s *S) bool { return isZeroValue(*ptr(s)) },
	}
	v := Value[S, T]{f: f, ptr: ptr}
	f.diff = func(before, after *S) (Write[S], bool, error) {
		next := *ptr(after)
		if reflect.DeepEqual(*ptr(before), next) {
			return Write[S]{}, false, nil
		}
		return v.Set(next), true, nil
	}
	f.encode = func(_, after *S) (json.RawMessage, error) {
		return json.Marshal(*ptr(after))
	}
	f.decode = func(raw json.RawMessage) (Write[S], error) {
		var val T
		if err := json.Unmarshal(raw, &val); err != nil {
			return Write[S]{}, err
		}
		return v.Set(val), nil
	}
	sc.declare(f)
	return v
}

// Name returns the field name.
func (v Value[S, T]) Name() string { return v.f.info.Name }

// Set writes val to the field.
func (v Value[S, T]) Set(val T) Write[S] {
	return Write[S]{
		field: v.f.info.Name,
		apply: func(s *S) { *v.ptr(s) = val },
	}
}

// Get reads the field from state.
func (v Value[S, T]) Get(state S) T {
	return *v.ptr(&state)
}

// Required marks the field as mandatory in the initial state.
func (v Value[S, T]) Required() Value[S, T] {
	v.f.info.Required = true
	return v
}

// Default sets the value used when the initial state leaves the field zero.
func (v Value[S, T]) Default(val T) Value[S, T] {
	v.f.info.HasDefault = true
	v.f.fill = func(s *S) { *v.ptr(s) = val }
	return v
}

// List is an Append field holding elements of type E on state S.
type List[S any, E any] struct {
	f   *field[S]
	ptr func(*S) *[]E
}

// AppendField declares a field whose writes are concatenated in merge order.
func AppendField[S any, E any](sc *Schema[S], name string, ptr func(*S) *[]E) List[S, E] {
	if ptr == nil {
		panic("stategraph: field accessor cannot be nil")
	}
	f := &field[S]{
		info:   FieldInfo{Name: name, Policy: Append},
		isZero: func(s *S) bool { return len(*ptr(s)) == 0 },
	}
	l := List[S, E]{f: f, ptr: ptr}
	f.diff = func(before, after *S) (Write[S], bool, error) {
		old, next := *ptr(before), *ptr(after)
		if !hasPrefix(next, old) {
			return Write[S]{}, false, errors.New("append field was rewritten")
		}
		if len(next) == len(old) {
			return Write[S]{}, false, nil
		}
		return l.Add(next[len(old):]...), true, nil
	}
	f.encode = func(before, after *S) (json.RawMessage, error) {
		tail := (*ptr(after))[len(*ptr(before)):]
		if tail == nil {
			tail = []E{}
		}
		return json.Marshal(tail)
	}
	f.decode = func(raw json.RawMessage) (Write[S], error) {
		var vals []E
		if err := json.Unmarshal(raw, &vals); err != nil {
			return Write[S]{}, err
		}
		return l.Add(vals...), nil
	}
	sc.declare(f)
	return l
}

// Name returns the field name.
func (l List[S, E]) Name() string { return l.f.info.Name }

// Add appends vals to the field.
func (l List[S, E]) Add(vals ...E) Write[S] {
	vals = slices.Clone(vals)
	return Write[S]{
		field: l.f.info.Name,
		apply: func(s *S) {
			p := l.ptr(s)
			// Clip forces a fresh backing array so earlier states never alias.
			*p = append(slices.Clip(*p), vals...)
		},
	}
}

// Get reads the field from state.
func (l List[S, E]) Get(state S) []E {
	return *l.ptr(&state)
}

// Required marks the field as mandatory in the initial state.
func (l List[S, E]) Required() List[S, E] {
	l.f.info.Required = true
	return l
}

// hasPrefix reports whether next starts with the elements of old. A nil
// and an empty slice are the same prefix.
func hasPrefix[E any](next, old []E) bool {
	if len(next) < len(old) {
		return false
	}
	for i := range old {
		if !reflect.DeepEqual(old[i], next[i]) {
			return false
		}
	}
	return true
}

func isZeroValue[T any](v T) bool {
	rv := reflect.ValueOf(&v).Elem()
	return rv.IsZero()
}
