package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Status is the lifecycle state of a thread as of a checkpoint.
type Status string

// Thread statuses.
const (
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusDone      Status = "done"
)

// Source records what produced a checkpoint.
type Source string

// Checkpoint sources.
const (
	// SourceInput is the checkpoint written before the first step of a run.
	SourceInput Source = "input"
	// SourceLoop is written after each completed step.
	SourceLoop Source = "loop"
	// SourceResume is written after the step that consumed resume values.
	SourceResume Source = "resume"
)

// Interrupt is a pending request for external input raised by a node.
type Interrupt struct {
	ID      string          `json:"id"`
	NodeID  string          `json:"node_id"`
	Step    int             `json:"step"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the interrupt payload into v.
func (i Interrupt) Decode(v any) error {
	if len(i.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(i.Payload, v)
}

// Checkpoint is the persisted snapshot of a thread after one step.
// It contains all information needed to resume execution.
// Checkpoints are immutable once stored and keyed by (ThreadID, Step).
type Checkpoint struct {
	// Metadata
	Version   int       `json:"version"`
	ThreadID  string    `json:"thread_id"`
	Step      int       `json:"step"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
	Status    Status    `json:"status"`

	// Execution state
	State json.RawMessage `json:"state"`

	// Frontier lists the nodes that ran in this step, in frontier order.
	Frontier []string `json:"frontier,omitempty"`
	// Completed lists the frontier nodes that finished before the step
	// suspended. Only meaningful for suspended checkpoints, whose State is
	// the state the step started from.
	Completed []string `json:"completed,omitempty"`
	// Writes holds the pending writes of each completed node, keyed by
	// node ID. They are merged with the resumed nodes' writes once the
	// step completes.
	Writes map[string]json.RawMessage `json:"writes,omitempty"`
	// Next is the frontier of the following step.
	Next []string `json:"next,omitempty"`
	// Interrupts are the pending interrupts of a suspended checkpoint.
	Interrupts []Interrupt `json:"interrupts,omitempty"`
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// New creates a running checkpoint with the given parameters.
// State must already be JSON-serialized.
func New(threadID string, step int, state []byte) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		ThreadID:  threadID,
		Step:      step,
		Timestamp: time.Now().UTC(),
		Source:    SourceLoop,
		Status:    StatusRunning,
		State:     state,
	}
}

// WithSource sets the checkpoint source.
func (c *Checkpoint) WithSource(src Source) *Checkpoint {
	c.Source = src
	return c
}

// WithRunID records the run that wrote the checkpoint.
func (c *Checkpoint) WithRunID(runID string) *Checkpoint {
	c.RunID = runID
	return c
}

// WithFrontier records the nodes that ran and the next frontier.
// An empty next frontier marks the thread done.
func (c *Checkpoint) WithFrontier(ran, next []string) *Checkpoint {
	c.Frontier = ran
	c.Next = next
	if len(next) == 0 && c.Status == StatusRunning {
		c.Status = StatusDone
	}
	return c
}

// WithInterrupts marks the checkpoint suspended on the given interrupts.
func (c *Checkpoint) WithInterrupts(completed []string, interrupts []Interrupt) *Checkpoint {
	c.Status = StatusSuspended
	c.Completed = completed
	c.Interrupts = interrupts
	c.Next = nil
	return c
}

// WithWrites records the pending writes of completed nodes.
func (c *Checkpoint) WithWrites(writes map[string]json.RawMessage) *Checkpoint {
	c.Writes = writes
	return c
}

// Info returns the listing metadata for the checkpoint.
func (c *Checkpoint) Info(size int64) Info {
	return Info{
		ThreadID:  c.ThreadID,
		Step:      c.Step,
		Status:    c.Status,
		Source:    c.Source,
		Timestamp: c.Timestamp,
		Size:      size,
	}
}
