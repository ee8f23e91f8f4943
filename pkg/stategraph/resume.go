package stategraph

import (
	"slices"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// Resume continues a thread from its latest checkpoint.
//
// What happens depends on the thread's status:
//   - suspended: cmd must supply a value for every pending interrupt. Only
//     the suspended nodes run again, against the state the step started
//     from, each seeing its value through Context.Resume. Their updates
//     and the stored writes of the step's other nodes merge in frontier
//     order; routing then covers the whole suspended step.
//   - running (the process crashed or a node failed): cmd must be nil or
//     carry no value; execution re-enters the recorded next frontier.
//   - done: cmd must carry no value; the final state is returned as is.
//
// A mismatch returns *UnresolvedInterruptError and leaves the thread
// untouched.
//
// Example:
//
//	result, err := compiled.Resume(ctx, store, "thread-1",
//	    &stategraph.Command{Resume: "approved"})
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, threadID string, cmd *Command, opts ...RunOption) (Result[S], error) {
	if store == nil {
		return Result[S]{}, ErrCheckpointerRequired
	}
	if threadID == "" {
		return Result[S]{}, ErrThreadIDRequired
	}
	opts = append(slices.Clone(opts), WithCheckpointer(store), WithThread(threadID))

	r, unlock, err := cg.prepare(ctx, opts)
	if err != nil {
		return Result[S]{}, err
	}
	defer r.release(unlock)

	cp, err := r.latest()
	if err != nil {
		return Result[S]{ThreadID: threadID}, err
	}
	if cp == nil {
		return Result[S]{ThreadID: threadID}, &CheckpointError{Step: -1, Op: "load", Err: ErrNoCheckpoints}
	}
	r.lastStep = cp.Step

	state, err := decodeState[S](cp)
	if err != nil {
		return r.result(state, cp.Status, cp.Interrupts), err
	}
	observability.LogResume(r.logger, threadID, cp.Step, len(cp.Interrupts))

	switch cp.Status {
	case StatusSuspended:
		values, err := cmd.resolve(threadID, cp.Interrupts)
		if err != nil {
			return r.result(state, StatusSuspended, cp.Interrupts), err
		}
		done, err := r.pendingWrites(cp)
		if err != nil {
			return r.result(state, StatusSuspended, cp.Interrupts), err
		}
		run := pendingNodes(cp)
		return r.observe(cp.Step+1, func() (Result[S], error) {
			return r.loop(state, cp.Frontier, run, values, done, cp.Step+1, checkpoint.SourceResume)
		})

	case StatusDone:
		if cmd.hasValue() {
			return r.result(state, StatusDone, nil), &UnresolvedInterruptError{
				ThreadID: threadID,
				Reason:   "thread is done, nothing to resume",
			}
		}
		return r.result(state, StatusDone, nil), nil

	default:
		if cmd.hasValue() {
			return r.result(state, StatusRunning, nil), &UnresolvedInterruptError{
				ThreadID: threadID,
				Reason:   "thread is not suspended",
			}
		}
		return r.observe(cp.Step+1, func() (Result[S], error) {
			return r.loop(state, cp.Next, cp.Next, nil, nil, cp.Step+1, checkpoint.SourceLoop)
		})
	}
}

// pendingNodes returns the suspended nodes of cp in frontier order.
func pendingNodes(cp *checkpoint.Checkpoint) []string {
	var nodes []string
	for _, id := range cp.Frontier {
		for _, in := range cp.Interrupts {
			if in.NodeID == id {
				nodes = append(nodes, id)
				break
			}
		}
	}
	return nodes
}
