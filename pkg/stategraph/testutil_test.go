package stategraph

import (
	"context"
	"io"
	"log/slog"
)

// testState is the state shared by most tests.
type testState struct {
	Count  int      `json:"count"`
	Log    []string `json:"log"`
	Name   string   `json:"name"`
	Answer string   `json:"answer"`
}

// testFields holds the schema and field descriptors for testState.
type testFields struct {
	schema *Schema[testState]
	count  Value[testState, int]
	log    List[testState, string]
	name   Value[testState, string]
	answer Value[testState, string]
}

func newTestFields() testFields {
	sc := NewSchema[testState]()
	return testFields{
		schema: sc,
		count:  ReplaceField(sc, "count", func(s *testState) *int { return &s.Count }),
		log:    AppendField(sc, "log", func(s *testState) *[]string { return &s.Log }),
		name:   ReplaceField(sc, "name", func(s *testState) *string { return &s.Name }),
		answer: ReplaceField(sc, "answer", func(s *testState) *string { return &s.Answer }),
	}
}

// logNode appends tag to the log.
func (f testFields) logNode(tag string) NodeFunc[testState] {
	return func(_ Context, _ testState) (Update[testState], error) {
		return Writes(f.log.Add(tag)), nil
	}
}

// incNode increments the counter.
func (f testFields) incNode() NodeFunc[testState] {
	return func(_ Context, s testState) (Update[testState], error) {
		return Writes(f.count.Set(s.Count + 1)), nil
	}
}

// noop writes nothing.
func noop[S any](_ Context, _ S) (Update[S], error) {
	return Update[S]{}, nil
}

// quietLogger discards all output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testCtx creates a test context with a silent logger.
func testCtx() Context {
	return NewContext(context.Background(), WithLogger(quietLogger()))
}

// mustCompile compiles g or panics.
func mustCompile[S any](g *Graph[S]) *CompiledGraph[S] {
	cg, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return cg
}
