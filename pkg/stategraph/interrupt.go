package stategraph

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Status is the lifecycle state of a thread.
type Status = checkpoint.Status

// Thread statuses.
const (
	StatusRunning   = checkpoint.StatusRunning
	StatusSuspended = checkpoint.StatusSuspended
	StatusDone      = checkpoint.StatusDone
)

// Interrupt is a pending request for external input raised by a
// suspending node.
type Interrupt = checkpoint.Interrupt

// Result is the outcome of Run, Invoke or Resume.
type Result[S any] struct {
	// State is the merged state after the last executed step.
	State S
	// Status is done, or suspended when Interrupts are pending.
	Status Status
	// Interrupts are the pending interrupts of a suspended thread.
	Interrupts []Interrupt
	// ThreadID is the thread the run was bound to, if any.
	ThreadID string
	// Step is the step of the last checkpoint written.
	Step int
}

// Suspended reports whether the run stopped on pending interrupts.
func (r Result[S]) Suspended() bool {
	return r.Status == StatusSuspended
}

// Command resumes a suspended thread.
//
// Resume supplies the value for a thread with exactly one pending
// interrupt. ResumeMap supplies one value per interrupt, keyed by
// interrupt ID or by the ID of the node that raised it, and must cover
// every pending interrupt. A nil Resume counts as no value.
type Command struct {
	Resume    any
	ResumeMap map[string]any
}

func (c *Command) hasValue() bool {
	return c != nil && (c.Resume != nil || len(c.ResumeMap) > 0)
}

// resolve assigns a resume value to every pending interrupt, keyed by
// node ID.
func (c *Command) resolve(threadID string, pending []Interrupt) (map[string]any, error) {
	unresolved := func(reason string) error {
		return &UnresolvedInterruptError{ThreadID: threadID, Pending: pending, Reason: reason}
	}
	if !c.hasValue() {
		return nil, unresolved("resume value required")
	}

	values := make(map[string]any, len(pending))
	if len(c.ResumeMap) == 0 {
		if len(pending) != 1 {
			return nil, unresolved("several interrupts pending, use ResumeMap")
		}
		values[pending[0].NodeID] = c.Resume
		return values, nil
	}

	for key, v := range c.ResumeMap {
		matched := false
		for _, in := range pending {
			if key == in.ID || key == in.NodeID {
				values[in.NodeID] = v
				matched = true
				break
			}
		}
		if !matched {
			return nil, unresolved(fmt.Sprintf("no pending interrupt %q", key))
		}
	}
	for _, in := range pending {
		if _, ok := values[in.NodeID]; !ok {
			return nil, unresolved(fmt.Sprintf("interrupt %s at node %s has no value", in.ID, in.NodeID))
		}
	}
	return values, nil
}
