// Package workflows holds the example graphs served by the stategraph CLI.
// Every workflow is a compiled graph over its own typed state, wrapped so
// callers can drive it with JSON input.
package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Outcome is the state of a thread after a workflow operation.
type Outcome struct {
	ThreadID   string                 `json:"thread_id,omitempty"`
	Step       int                    `json:"step"`
	Status     stategraph.Status      `json:"status"`
	Source     checkpoint.Source      `json:"source,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitzero"`
	Next       []string               `json:"next,omitempty"`
	State      any                    `json:"state"`
	Interrupts []stategraph.Interrupt `json:"interrupts,omitempty"`
}

// Event is a streamed execution event with the state left untyped.
type Event struct {
	Type       stategraph.EventType   `json:"type"`
	Step       int                    `json:"step"`
	NodeID     string                 `json:"node_id,omitempty"`
	Fields     []string               `json:"fields,omitempty"`
	Next       []string               `json:"next,omitempty"`
	Status     stategraph.Status      `json:"status,omitempty"`
	State      any                    `json:"state,omitempty"`
	Interrupts []stategraph.Interrupt `json:"interrupts,omitempty"`
}

// Workflow is a compiled graph driven with JSON documents.
type Workflow interface {
	Name() string
	Description() string
	// Mermaid renders the graph as a Mermaid flowchart.
	Mermaid() string
	// Sample returns an input document that runs the workflow end to end.
	Sample() json.RawMessage
	// Invoke decodes input as a partial state and merges it onto the
	// thread's latest state (or a fresh one) before running.
	Invoke(ctx stategraph.Context, input json.RawMessage, opts ...stategraph.RunOption) (Outcome, error)
	// Stream is the streaming form of Invoke.
	Stream(ctx stategraph.Context, input json.RawMessage, opts ...stategraph.RunOption) iter.Seq2[Event, error]
	// Resume continues a thread. An empty value resumes without input.
	Resume(ctx stategraph.Context, store checkpoint.Store, threadID string, value json.RawMessage, opts ...stategraph.RunOption) (Outcome, error)
	State(ctx context.Context, store checkpoint.Store, threadID string) (Outcome, error)
	History(ctx context.Context, store checkpoint.Store, threadID string) ([]Outcome, error)
}

// definition adapts a CompiledGraph[S] to Workflow.
type definition[S any] struct {
	name        string
	description string
	graph       *stategraph.CompiledGraph[S]
	sample      S
}

func define[S any](name, description string, build func() (*stategraph.CompiledGraph[S], error), sample S) *definition[S] {
	cg, err := build()
	if err != nil {
		panic(fmt.Sprintf("workflows: compile %s: %v", name, err))
	}
	return &definition[S]{name: name, description: description, graph: cg, sample: sample}
}

func (d *definition[S]) Name() string        { return d.name }
func (d *definition[S]) Description() string { return d.description }
func (d *definition[S]) Mermaid() string     { return d.graph.Mermaid() }

func (d *definition[S]) Sample() json.RawMessage {
	data, err := json.Marshal(d.sample)
	if err != nil {
		return nil
	}
	return data
}

// decode turns a JSON document into writes for the keys it holds. A key
// set to a zero value still overwrites the thread's value.
func (d *definition[S]) decode(input json.RawMessage) (stategraph.Update[S], error) {
	if len(input) == 0 {
		return stategraph.Update[S]{}, nil
	}
	update, err := d.graph.Schema().Decode(input)
	if err != nil {
		return stategraph.Update[S]{}, fmt.Errorf("decode %s input: %w", d.name, err)
	}
	return update, nil
}

func (d *definition[S]) Invoke(ctx stategraph.Context, input json.RawMessage, opts ...stategraph.RunOption) (Outcome, error) {
	update, err := d.decode(input)
	if err != nil {
		return Outcome{}, err
	}
	res, err := d.graph.Invoke(ctx, update, opts...)
	if err != nil {
		return Outcome{}, err
	}
	return fromResult(res), nil
}

func (d *definition[S]) Stream(ctx stategraph.Context, input json.RawMessage, opts ...stategraph.RunOption) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		update, err := d.decode(input)
		if err != nil {
			yield(Event{}, err)
			return
		}
		for ev, err := range d.graph.StreamInvoke(ctx, update, opts...) {
			if !yield(fromEvent(ev), err) {
				return
			}
		}
	}
}

func (d *definition[S]) Resume(ctx stategraph.Context, store checkpoint.Store, threadID string, value json.RawMessage, opts ...stategraph.RunOption) (Outcome, error) {
	var cmd *stategraph.Command
	if len(value) > 0 {
		cmd = &stategraph.Command{Resume: value}
	}
	res, err := d.graph.Resume(ctx, store, threadID, cmd, opts...)
	if err != nil {
		return Outcome{}, err
	}
	return fromResult(res), nil
}

func (d *definition[S]) State(ctx context.Context, store checkpoint.Store, threadID string) (Outcome, error) {
	snap, err := d.graph.GetState(ctx, store, threadID)
	if err != nil {
		return Outcome{}, err
	}
	return fromSnapshot(snap), nil
}

func (d *definition[S]) History(ctx context.Context, store checkpoint.Store, threadID string) ([]Outcome, error) {
	snaps, err := d.graph.History(ctx, store, threadID)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome, len(snaps))
	for i, s := range snaps {
		out[i] = fromSnapshot(s)
	}
	return out, nil
}

func fromResult[S any](r stategraph.Result[S]) Outcome {
	return Outcome{
		ThreadID:   r.ThreadID,
		Step:       r.Step,
		Status:     r.Status,
		State:      r.State,
		Interrupts: r.Interrupts,
	}
}

func fromEvent[S any](ev stategraph.Event[S]) Event {
	out := Event{
		Type:       ev.Type,
		Step:       ev.Step,
		NodeID:     ev.NodeID,
		Fields:     ev.Fields,
		Next:       ev.Next,
		Status:     ev.Status,
		Interrupts: ev.Interrupts,
	}
	if ev.Type != stategraph.EventNodeEnd {
		out.State = ev.State
	}
	return out
}

func fromSnapshot[S any](s stategraph.Snapshot[S]) Outcome {
	return Outcome{
		ThreadID:   s.ThreadID,
		Step:       s.Step,
		Status:     s.Status,
		Source:     s.Source,
		Timestamp:  s.Timestamp,
		Next:       s.Next,
		State:      s.State,
		Interrupts: s.Interrupts,
	}
}
