package stategraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Fields(t *testing.T) {
	f := newTestFields()

	fields := f.schema.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, "count", fields[0].Name)
	assert.Equal(t, Replace, fields[0].Policy)
	assert.Equal(t, "log", fields[1].Name)
	assert.Equal(t, Append, fields[1].Policy)
	assert.True(t, f.schema.Has("answer"))
	assert.False(t, f.schema.Has("missing"))
}

func TestSchema_ApplyReplace(t *testing.T) {
	f := newTestFields()

	out, err := f.schema.Apply(testState{Count: 1, Name: "a"}, Writes(f.count.Set(2), f.count.Set(3)))

	require.NoError(t, err)
	assert.Equal(t, 3, out.Count, "last write wins")
	assert.Equal(t, "a", out.Name, "unwritten fields are kept")
}

func TestSchema_ApplyAppend(t *testing.T) {
	f := newTestFields()

	out, err := f.schema.Apply(testState{Log: []string{"a"}}, Writes(f.log.Add("b", "c"), f.log.Add("d")))

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, out.Log)
}

func TestSchema_ApplyDoesNotAlias(t *testing.T) {
	f := newTestFields()
	base := testState{Log: make([]string, 1, 8)}
	base.Log[0] = "root"

	left, err := f.schema.Apply(base, Writes(f.log.Add("left")))
	require.NoError(t, err)
	right, err := f.schema.Apply(base, Writes(f.log.Add("right")))
	require.NoError(t, err)

	assert.Equal(t, []string{"root", "left"}, left.Log)
	assert.Equal(t, []string{"root", "right"}, right.Log)
	assert.Equal(t, []string{"root"}, base.Log)
}

func TestSchema_ApplyCopiesAddedValues(t *testing.T) {
	f := newTestFields()
	vals := []string{"x"}
	w := f.log.Add(vals...)
	vals[0] = "mutated"

	out, err := f.schema.Apply(testState{}, Writes(w))

	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Log)
}

func TestSchema_ApplyUndeclaredField(t *testing.T) {
	f := newTestFields()
	other := NewSchema[testState]()
	stray := ReplaceField(other, "stray", func(s *testState) *string { return &s.Name })

	out, err := f.schema.Apply(testState{Name: "kept"}, Writes(f.count.Set(1), stray.Set("x")))

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "stray", stateErr.Field)
	assert.ErrorIs(t, err, ErrUndeclaredField)
	assert.Equal(t, testState{Name: "kept"}, out, "nothing applies when a write is rejected")
}

func TestSchema_DefaultsAndRequired(t *testing.T) {
	sc := NewSchema[testState]()
	name := ReplaceField(sc, "name", func(s *testState) *string { return &s.Name }).Required()
	ReplaceField(sc, "answer", func(s *testState) *string { return &s.Answer }).Default("none")
	AppendField(sc, "log", func(s *testState) *[]string { return &s.Log }).Required()

	filled := sc.withDefaults(testState{})
	assert.Equal(t, "none", filled.Answer)

	filled = sc.withDefaults(testState{Answer: "given"})
	assert.Equal(t, "given", filled.Answer)

	err := sc.Validate(testState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), `"name"`)
	assert.Contains(t, err.Error(), `"log"`)

	assert.NoError(t, sc.Validate(testState{Name: "x", Log: []string{"a"}}))
	assert.Equal(t, "name", name.Name())

	info := sc.Fields()
	assert.True(t, info[0].Required)
	assert.True(t, info[1].HasDefault)
}

func TestSchema_Diff(t *testing.T) {
	f := newTestFields()
	before := testState{Count: 1, Log: []string{"a"}, Name: "x"}
	after := testState{Count: 2, Log: []string{"a", "b"}, Name: "x"}

	u, err := f.schema.Diff(before, after)
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "log"}, u.Fields())

	replayed, err := f.schema.Apply(before, u)
	require.NoError(t, err)
	assert.Equal(t, after, replayed)

	u, err = f.schema.Diff(before, before)
	require.NoError(t, err)
	assert.True(t, u.IsEmpty())
}

func TestSchema_DiffFromEmptyAppendField(t *testing.T) {
	f := newTestFields()

	for name, before := range map[string]testState{
		"nil":   {},
		"empty": {Log: []string{}},
	} {
		t.Run(name, func(t *testing.T) {
			u, err := f.schema.Diff(before, testState{Log: []string{"x"}})
			require.NoError(t, err)
			assert.Equal(t, []string{"log"}, u.Fields())

			replayed, err := f.schema.Apply(before, u)
			require.NoError(t, err)
			assert.Equal(t, []string{"x"}, replayed.Log)
		})
	}
}

func TestSchema_DiffRewrittenAppendField(t *testing.T) {
	f := newTestFields()

	_, err := f.schema.Diff(testState{Log: []string{"a", "b"}}, testState{Log: []string{"z"}})

	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "log", stateErr.Field)
}

func TestSchema_DeclarePanics(t *testing.T) {
	sc := NewSchema[testState]()
	ReplaceField(sc, "name", func(s *testState) *string { return &s.Name })

	assert.PanicsWithValue(t, "stategraph: duplicate field: name", func() {
		ReplaceField(sc, "name", func(s *testState) *string { return &s.Name })
	})
	assert.PanicsWithValue(t, "stategraph: field name cannot be empty", func() {
		AppendField(sc, "", func(s *testState) *[]string { return &s.Log })
	})
	assert.Panics(t, func() {
		ReplaceField[testState, int](sc, "count", nil)
	})
}

func TestUpdate(t *testing.T) {
	f := newTestFields()

	var zero Update[testState]
	assert.True(t, zero.IsEmpty())

	u := Writes(f.count.Set(1), f.log.Add("a")).With(f.count.Set(2))
	assert.Equal(t, []string{"count", "log"}, u.Fields())
	assert.False(t, u.Suspended())

	s := Suspend[testState]("question")
	assert.True(t, s.Suspended())
	assert.False(t, s.IsEmpty())
	assert.Equal(t, "count", f.count.Set(1).Field())
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "replace", Replace.String())
	assert.Equal(t, "append", Append.String())
	assert.Equal(t, "Policy(7)", Policy(7).String())
}

func TestSchema_Decode(t *testing.T) {
	f := newTestFields()
	prev := testState{Count: 7, Log: []string{"a"}, Name: "x"}

	u, err := f.schema.Decode([]byte(`{"log":["b","c"],"count":0}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "log"}, u.Fields(), "writes follow declaration order")

	next, err := f.schema.Apply(prev, u)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Count, "a present zero value is still written")
	assert.Equal(t, []string{"a", "b", "c"}, next.Log)
	assert.Equal(t, "x", next.Name, "absent keys keep their value")

	u, err = f.schema.Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, u.IsEmpty())
}

func TestSchema_DecodeErrors(t *testing.T) {
	f := newTestFields()

	_, err := f.schema.Decode([]byte(`{"nmae":"typo"}`))
	assert.ErrorIs(t, err, ErrUndeclaredField)

	_, err = f.schema.Decode([]byte(`{"count":"seven"}`))
	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "count", stateErr.Field)

	_, err = f.schema.Decode([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrDeserializeState)
}

func TestSchema_EncodeRoundTrip(t *testing.T) {
	f := newTestFields()
	prev := testState{Count: 3, Log: []string{"a"}}
	u := Writes(f.log.Add("b"), f.count.Set(0), f.log.Add("c"))

	raw, err := f.schema.encode(prev, u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"log":["b","c"]}`, string(raw))

	decoded, err := f.schema.Decode(raw)
	require.NoError(t, err)

	want, err := f.schema.Apply(prev, u)
	require.NoError(t, err)
	got, err := f.schema.Apply(prev, decoded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
