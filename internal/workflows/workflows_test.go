package workflows

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ctxWith(client llm.Client) stategraph.Context {
	return stategraph.NewContext(context.Background(),
		stategraph.WithLogger(quietLogger()),
		stategraph.WithLLM(client))
}

func runOpts() []stategraph.RunOption {
	return []stategraph.RunOption{stategraph.WithObservabilityLogger(quietLogger())}
}

func build[S any](t *testing.T, fn func() (*stategraph.CompiledGraph[S], error)) *stategraph.CompiledGraph[S] {
	t.Helper()
	cg, err := fn()
	require.NoError(t, err)
	return cg
}

func TestBuiltin_Names(t *testing.T) {
	c := Builtin()
	assert.Equal(t, []string{
		"approval", "blog", "bmi", "chat", "crash", "cricket", "essay",
		"joke", "qa", "quadratic", "review", "translate", "tweet",
	}, c.Names())
	assert.Equal(t, 13, c.Len())

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCatalog_DuplicatePanics(t *testing.T) {
	c := NewCatalog()
	w := define("bmi", "", NewBMI, BMIState{})
	c.Register(w)
	assert.Panics(t, func() { c.Register(w) })
}

func TestBuiltin_SamplesRun(t *testing.T) {
	c := Builtin()
	store := checkpoint.NewMemoryStore()

	for _, name := range c.Names() {
		t.Run(name, func(t *testing.T) {
			w, ok := c.Get(name)
			require.True(t, ok)
			assert.Contains(t, w.Mermaid(), "graph TD")
			assert.NotEmpty(t, w.Description())

			input := w.Sample()
			require.True(t, json.Valid(input))
			if name == "crash" {
				input = json.RawMessage(`{"input":"start","hang_ms":0}`)
			}

			opts := append(runOpts(), stategraph.WithCheckpointer(store), stategraph.WithThread("sample-"+name))
			out, err := w.Invoke(ctxWith(Offline()), input, opts...)
			require.NoError(t, err)

			want := stategraph.StatusDone
			if name == "approval" {
				want = stategraph.StatusSuspended
			}
			assert.Equal(t, want, out.Status)
			assert.Equal(t, "sample-"+name, out.ThreadID)

			snap, err := w.State(context.Background(), store, "sample-"+name)
			require.NoError(t, err)
			assert.Equal(t, out.Step, snap.Step)
			assert.Equal(t, want, snap.Status)
		})
	}
}

func TestWorkflow_InvokeRejectsBadInput(t *testing.T) {
	w, _ := Builtin().Get("bmi")
	_, err := w.Invoke(ctxWith(nil), json.RawMessage(`{"weight":"heavy"}`), runOpts()...)
	assert.ErrorContains(t, err, "decode bmi input")
}

func TestWorkflow_InvokeRejectsUnknownKey(t *testing.T) {
	w, _ := Builtin().Get("bmi")
	_, err := w.Invoke(ctxWith(nil), json.RawMessage(`{"wieght":65,"height":1.5}`), runOpts()...)
	assert.ErrorIs(t, err, stategraph.ErrUndeclaredField)
}

func TestWorkflow_InvokeWritesZeroValues(t *testing.T) {
	w, _ := Builtin().Get("quadratic")
	store := checkpoint.NewMemoryStore()
	opts := append(runOpts(), stategraph.WithCheckpointer(store), stategraph.WithThread("q"))

	_, err := w.Invoke(ctxWith(nil), json.RawMessage(`{"a":4,"b":-5,"c":-4}`), opts...)
	require.NoError(t, err)

	out, err := w.Invoke(ctxWith(nil), json.RawMessage(`{"a":1,"b":0,"c":-4}`), opts...)
	require.NoError(t, err)

	state := out.State.(QuadState)
	assert.Zero(t, state.B, "an explicit zero replaces the thread's value")
	assert.InDelta(t, 16, state.Discriminant, 1e-9)
	assert.Equal(t, []float64{2, -2}, state.Roots)
}

func TestWorkflow_History(t *testing.T) {
	w, _ := Builtin().Get("bmi")
	store := checkpoint.NewMemoryStore()
	opts := append(runOpts(), stategraph.WithCheckpointer(store), stategraph.WithThread("h"))

	_, err := w.Invoke(ctxWith(nil), w.Sample(), opts...)
	require.NoError(t, err)

	hist, err := w.History(context.Background(), store, "h")
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, checkpoint.SourceInput, hist[0].Source)
	assert.Equal(t, []string{"calculate_bmi"}, hist[0].Next)
	assert.Equal(t, "Overweight", hist[2].State.(BMIState).Category)
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence(`  {"a":1} `))
}

func TestComplete_NoClient(t *testing.T) {
	_, err := complete(ctxWith(nil), promptAssistant, prompt.Must("hi"), nil)
	assert.ErrorIs(t, err, ErrNoLLM)
}

func TestWorkflow_Stream(t *testing.T) {
	w, _ := Builtin().Get("bmi")

	var types []stategraph.EventType
	var last Event
	for ev, err := range w.Stream(ctxWith(nil), w.Sample(), runOpts()...) {
		require.NoError(t, err)
		types = append(types, ev.Type)
		if ev.Type == stategraph.EventNodeEnd {
			assert.Nil(t, ev.State)
		}
		last = ev
	}

	assert.Equal(t, []stategraph.EventType{
		stategraph.EventNodeEnd, stategraph.EventStepEnd,
		stategraph.EventNodeEnd, stategraph.EventStepEnd,
		stategraph.EventDone,
	}, types)
	assert.Equal(t, stategraph.StatusDone, last.Status)
	assert.Equal(t, "Overweight", last.State.(BMIState).Category)
}

func TestWorkflow_StreamBadInput(t *testing.T) {
	w, _ := Builtin().Get("bmi")
	n := 0
	for _, err := range w.Stream(ctxWith(nil), json.RawMessage(`[`), runOpts()...) {
		n++
		assert.ErrorContains(t, err, "decode bmi input")
	}
	assert.Equal(t, 1, n)
}
