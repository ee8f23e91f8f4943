package stategraph

import (
	"context"
	"iter"
	"slices"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// EventType identifies a stream event.
type EventType string

// Stream event types.
const (
	// EventNodeEnd is emitted as each node finishes, in completion order.
	EventNodeEnd EventType = "node_end"
	// EventStepEnd is emitted after a step's updates are merged.
	EventStepEnd EventType = "step_end"
	// EventInterrupt is emitted when a step suspends.
	EventInterrupt EventType = "interrupt"
	// EventDone is the final event of a run that did not fail.
	EventDone EventType = "done"
)

// Event is one item of a streamed run.
type Event[S any] struct {
	Type EventType
	Step int

	// NodeID, Update and Fields are set on node_end.
	NodeID string
	Update Update[S]
	Fields []string

	// State is the merged state (step_end, done), or the state the
	// suspended step started from (interrupt).
	State S
	// Next is the frontier of the following step (step_end).
	Next []string
	// Interrupts are the pending interrupts (interrupt, done).
	Interrupts []Interrupt
	// Status is the final thread status (done).
	Status Status
}

type streamItem[S any] struct {
	event Event[S]
	err   error
}

// Stream runs the graph like Run and yields events as execution
// progresses. A failed run yields the error as the last item. Breaking out
// of the loop cancels the run.
//
// Example:
//
//	for ev, err := range compiled.Stream(ctx, state) {
//	    if err != nil {
//	        return err
//	    }
//	    if ev.Type == stategraph.EventNodeEnd {
//	        fmt.Println(ev.NodeID, ev.Fields)
//	    }
//	}
func (cg *CompiledGraph[S]) Stream(ctx Context, state S, opts ...RunOption) iter.Seq2[Event[S], error] {
	return cg.stream(ctx, opts, func(c Context, o []RunOption) (Result[S], error) {
		return cg.Run(c, state, o...)
	})
}

// StreamInvoke is the streaming form of Invoke.
func (cg *CompiledGraph[S]) StreamInvoke(ctx Context, input Update[S], opts ...RunOption) iter.Seq2[Event[S], error] {
	return cg.stream(ctx, opts, func(c Context, o []RunOption) (Result[S], error) {
		return cg.Invoke(c, input, o...)
	})
}

// StreamResume is the streaming form of Resume.
func (cg *CompiledGraph[S]) StreamResume(ctx Context, store checkpoint.Store, threadID string, cmd *Command, opts ...RunOption) iter.Seq2[Event[S], error] {
	return cg.stream(ctx, opts, func(c Context, o []RunOption) (Result[S], error) {
		return cg.Resume(c, store, threadID, cmd, o...)
	})
}

func (cg *CompiledGraph[S]) stream(ctx Context, opts []RunOption, run func(Context, []RunOption) (Result[S], error)) iter.Seq2[Event[S], error] {
	return func(yield func(Event[S], error) bool) {
		if ctx == nil {
			yield(Event[S]{}, ErrNilContext)
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		items := make(chan streamItem[S])
		stop := make(chan struct{})
		send := func(it streamItem[S]) {
			select {
			case items <- it:
			case <-stop:
			}
		}

		go func() {
			defer close(items)
			emitter := withEmitter(func(ev any) {
				if e, ok := ev.(Event[S]); ok {
					send(streamItem[S]{event: e})
				}
			})
			res, err := run(asExecutionContext(ctx).withParent(runCtx), append(slices.Clone(opts), emitter))
			if err != nil {
				send(streamItem[S]{err: err})
				return
			}
			send(streamItem[S]{event: Event[S]{
				Type:       EventDone,
				Step:       res.Step,
				State:      res.State,
				Interrupts: res.Interrupts,
				Status:     res.Status,
			}})
		}()

		for it := range items {
			if !yield(it.event, it.err) {
				close(stop)
				cancel()
				for range items {
				}
				return
			}
		}
	}
}
