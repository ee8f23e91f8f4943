package stategraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// Context provides execution context to nodes and routers.
// It extends context.Context with stategraph-specific services and metadata.
//
// Context is immutable after creation. The executor creates derived contexts
// for each node with updated NodeID, Step and an enriched logger.
type Context interface {
	context.Context

	// Services

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// LLM returns the LLM client, or nil if not configured.
	// Nodes should check for nil before using.
	LLM() llm.Client

	// Metadata

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// ThreadID returns the thread being executed, or "" for unpersisted runs.
	ThreadID() string

	// NodeID returns the current node being executed.
	// Empty string outside node execution.
	NodeID() string

	// Step returns the current step number.
	Step() int

	// Resume returns the value supplied to resume this node after it
	// suspended. ok is false on a node's first entry.
	Resume() (value any, ok bool)
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger    *slog.Logger
	llmClient llm.Client
	runID     string
	threadID  string
	nodeID    string
	step      int
	resume    any
	hasResume bool
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// LLM returns the LLM client.
func (c *executionContext) LLM() llm.Client {
	return c.llmClient
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// ThreadID returns the thread identifier.
func (c *executionContext) ThreadID() string {
	return c.threadID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Step returns the current step number.
func (c *executionContext) Step() int {
	return c.step
}

// Resume returns the resume value for the current node.
func (c *executionContext) Resume() (any, bool) {
	return c.resume, c.hasResume
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id, thread_id, node_id and step
// during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithLLM sets the LLM client for the context.
func WithLLM(client llm.Client) ContextOption {
	return func(c *executionContext) {
		c.llmClient = client
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// stategraph-specific services and metadata.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(myLogger),
//	    stategraph.WithLLM(client))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}
	if ec.logger == nil {
		ec.logger = slog.Default()
	}

	return ec
}

// asExecutionContext adopts a caller-provided Context.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context:   ctx,
		logger:    ctx.Logger(),
		llmClient: ctx.LLM(),
		runID:     ctx.RunID(),
	}
}

// withRun returns a copy bound to a thread and a derived context.Context.
func (c *executionContext) withRun(parent context.Context, threadID string) *executionContext {
	cp := *c
	cp.Context = parent
	cp.threadID = threadID
	return &cp
}

// withParent returns a copy carrying parent as its context.Context.
func (c *executionContext) withParent(parent context.Context) *executionContext {
	cp := *c
	cp.Context = parent
	return &cp
}

// withNode returns a new context for one node activation.
// Used internally by the executor to enrich the context per-node.
func (c *executionContext) withNode(nodeID string, step int, resume any, hasResume bool) *executionContext {
	logger := c.logger.With("run_id", c.runID, "node_id", nodeID, "step", step)
	if c.threadID != "" {
		logger = logger.With("thread_id", c.threadID)
	}
	return &executionContext{
		Context:   c.Context,
		logger:    logger,
		llmClient: c.llmClient,
		runID:     c.runID,
		threadID:  c.threadID,
		nodeID:    nodeID,
		step:      step,
		resume:    resume,
		hasResume: hasResume,
	}
}

// ResumeValue returns the resume value for the current node converted to T.
// Values supplied in-process are returned as-is when they already have
// type T; anything else (a decoded JSON document from the CLI, for
// example) is converted through a JSON round trip.
func ResumeValue[T any](ctx Context) (T, bool, error) {
	var zero T
	raw, ok := ctx.Resume()
	if !ok {
		return zero, false, nil
	}
	if v, ok := raw.(T); ok {
		return v, true, nil
	}

	var data []byte
	switch r := raw.(type) {
	case json.RawMessage:
		data = r
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			return zero, true, fmt.Errorf("encode resume value: %w", err)
		}
		data = b
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, true, fmt.Errorf("decode resume value: %w", err)
	}
	return v, true, nil
}
