package stategraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates no edge leaves START.
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrNodeNotFound indicates an edge or route references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoPathToEnd indicates no path exists from the entry point to END.
	ErrNoPathToEnd = errors.New("no path to END from entry")

	// ErrUnmappedLabel indicates a router label that resolves to no node.
	ErrUnmappedLabel = errors.New("router label has no target")

	// ErrEmptyDomain indicates a router declared without any labels.
	ErrEmptyDomain = errors.New("router declares no labels")

	// ErrUndeclaredLabel indicates a router mapping for a label outside its domain.
	ErrUndeclaredLabel = errors.New("router maps an undeclared label")

	// ErrMixedEdges indicates a node with both plain and conditional edges.
	ErrMixedEdges = errors.New("node has both plain and conditional edges")

	// ErrDeadEnd indicates a node without any outgoing edge.
	ErrDeadEnd = errors.New("node has no outgoing edge")
)

// Sentinel errors for execution.
var (
	// ErrMaxSteps indicates the execution loop exceeded the configured step limit.
	ErrMaxSteps = errors.New("exceeded maximum steps")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrLabelOutsideDomain indicates a router returned a label it did not declare.
	ErrLabelOutsideDomain = errors.New("router returned undeclared label")

	// ErrUndeclaredField indicates an update wrote a field the schema does not declare.
	ErrUndeclaredField = errors.New("field not declared in schema")

	// ErrMissingField indicates a required field was left at its zero value.
	ErrMissingField = errors.New("required field missing")

	// ErrThreadBusy indicates another run holds the thread.
	ErrThreadBusy = errors.New("thread already has an active run")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrThreadIDRequired indicates checkpointing was enabled without a thread ID.
	ErrThreadIDRequired = errors.New("thread ID required for checkpointing")

	// ErrCheckpointerRequired indicates a node suspended in a run without a checkpointer.
	ErrCheckpointerRequired = errors.New("suspension requires a checkpointer")

	// ErrSerializeState indicates state serialization failed.
	ErrSerializeState = errors.New("failed to serialize state")

	// ErrDeserializeState indicates state deserialization failed.
	ErrDeserializeState = errors.New("failed to deserialize state")

	// ErrNoCheckpoints indicates no checkpoints exist for the thread.
	ErrNoCheckpoints = errors.New("no checkpoints found for thread")

	// ErrCheckpointVersionMismatch indicates the checkpoint version is incompatible.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")

	// ErrUnresolvedInterrupt is the sentinel matched by UnresolvedInterruptError.
	ErrUnresolvedInterrupt = errors.New("unresolved interrupt")
)

// ConfigError reports every problem found while compiling a graph.
type ConfigError struct {
	Errs []error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "invalid graph: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual problems to errors.Is/As.
func (e *ConfigError) Unwrap() []error {
	return e.Errs
}

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	// Step is the step whose checkpoint failed.
	Step int
	// Op is the operation that failed ("save", "load", "serialize").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at step %d: %v", e.Op, e.Step, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// NodeError wraps an error with node context.
// It provides information about which node failed and what operation was attempted.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed ("execute", "merge", "clone").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError captures the state when execution was cancelled.
type CancellationError struct {
	// Step is the step that was about to run or was running.
	Step int
	// Frontier is the set of nodes in that step.
	Frontier []string
	// State is the last merged state (can type-assert to the actual type).
	State any
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
	// WasExecuting is true if cancellation occurred during node execution.
	WasExecuting bool
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.WasExecuting {
		return fmt.Sprintf("cancelled during step %d %v: %v", e.Step, e.Frontier, e.Cause)
	}
	return fmt.Sprintf("cancelled before step %d %v: %v", e.Step, e.Frontier, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RouterError wraps errors from conditional edge routing.
type RouterError struct {
	// FromNode is the node with the conditional edge.
	FromNode string
	// Returned is the label the router returned.
	Returned string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Returned, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// StateError reports an invalid write or an invalid state value.
type StateError struct {
	// Field is the offending field name.
	Field string
	// Err is ErrUndeclaredField, ErrMissingField or a merge failure.
	Err error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("state field %q: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StateError) Unwrap() error {
	return e.Err
}

// MaxStepsError provides context when the step limit is exceeded.
type MaxStepsError struct {
	// Max is the configured step limit.
	Max int
	// Frontier is the set of nodes that would have executed next.
	Frontier []string
	// State is the state at termination (can type-assert to the actual type).
	State any
}

// Error implements the error interface.
func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("exceeded maximum steps (%d) with pending nodes %v", e.Max, e.Frontier)
}

// Unwrap returns ErrMaxSteps for errors.Is support.
func (e *MaxStepsError) Unwrap() error {
	return ErrMaxSteps
}

// UnresolvedInterruptError is returned when a thread cannot continue
// because the resume command does not match its pending interrupts.
type UnresolvedInterruptError struct {
	// ThreadID is the thread that was addressed.
	ThreadID string
	// Pending lists the interrupts still awaiting a value.
	Pending []Interrupt
	// Reason describes the mismatch.
	Reason string
}

// Error implements the error interface.
func (e *UnresolvedInterruptError) Error() string {
	return fmt.Sprintf("thread %s: %s (%d pending)", e.ThreadID, e.Reason, len(e.Pending))
}

// Unwrap returns ErrUnresolvedInterrupt for errors.Is support.
func (e *UnresolvedInterruptError) Unwrap() error {
	return ErrUnresolvedInterrupt
}
