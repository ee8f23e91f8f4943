package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/lock"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// Run executes the graph with the given initial state.
//
// Zero-valued fields with a declared default are filled and required
// fields are checked before the first step. Execution then proceeds in
// supersteps until the frontier is empty or a node suspends.
//
// On error, the returned Result carries the last merged state (useful
// for debugging). Typed errors: *NodeError, *PanicError, *RouterError,
// *CancellationError, *MaxStepsError, *CheckpointError.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, State{Weight: 80, Height: 1.8})
//	if err != nil {
//	    // result.State contains state at point of failure
//	}
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (Result[S], error) {
	return cg.begin(ctx, opts, false, func(S) (S, error) { return state, nil })
}

// Invoke continues a thread with new input. The latest checkpointed state
// of the thread (or the zero state for a new thread) has input merged into
// it by field policy, then execution starts again from the entry.
//
// An empty input on a thread whose last run stopped before finishing,
// after a crash or a node failure, re-enters the recorded next frontier
// the way Resume with a nil command does.
//
// Example:
//
//	// Each turn appends to the chat history kept on the thread.
//	result, err := compiled.Invoke(ctx, stategraph.Writes(messages.Add(userMsg)),
//	    stategraph.WithCheckpointer(store), stategraph.WithThread(threadID))
func (cg *CompiledGraph[S]) Invoke(ctx Context, input Update[S], opts ...RunOption) (Result[S], error) {
	return cg.begin(ctx, opts, input.IsEmpty(), func(prev S) (S, error) {
		return cg.schema.Apply(prev, input)
	})
}

// begin starts a new run on the thread. initial builds the input state
// from the thread's latest state. With reenter set, a thread whose last
// run stopped mid-way continues from its recorded next frontier instead.
func (cg *CompiledGraph[S]) begin(ctx Context, opts []RunOption, reenter bool, initial func(prev S) (S, error)) (Result[S], error) {
	r, unlock, err := cg.prepare(ctx, opts)
	if err != nil {
		return Result[S]{}, err
	}
	defer r.release(unlock)

	var prev S
	step := 0
	latest, err := r.latest()
	if err != nil {
		return r.result(prev, StatusRunning, nil), err
	}
	if latest != nil {
		if prev, err = decodeState[S](latest); err != nil {
			return r.result(prev, StatusRunning, nil), err
		}
		r.lastStep = latest.Step
		if latest.Status == StatusSuspended {
			return r.result(prev, StatusSuspended, latest.Interrupts), &UnresolvedInterruptError{
				ThreadID: r.threadID,
				Pending:  latest.Interrupts,
				Reason:   "thread is suspended, resume it first",
			}
		}
		step = latest.Step + 1
		if reenter && latest.Status == StatusRunning && len(latest.Next) > 0 {
			observability.LogResume(r.logger, r.threadID, latest.Step, 0)
			return r.observe(step, func() (Result[S], error) {
				return r.loop(prev, latest.Next, latest.Next, nil, nil, step, checkpoint.SourceLoop)
			})
		}
	}

	state, err := initial(prev)
	if err != nil {
		return r.result(prev, StatusRunning, nil), err
	}
	state = cg.schema.withDefaults(state)
	if err := cg.schema.Validate(state); err != nil {
		return r.result(state, StatusRunning, nil), err
	}

	return r.observe(step, func() (Result[S], error) {
		next, err := r.route(state, []string{START}, step)
		if err != nil {
			return r.result(state, StatusRunning, nil), err
		}
		if err := r.save(step, state, checkpoint.SourceInput, nil, next, nil, nil); err != nil {
			return r.result(state, StatusRunning, nil), err
		}
		return r.loop(state, next, next, nil, nil, step+1, checkpoint.SourceLoop)
	})
}

// runner carries the state of one invocation.
type runner[S any] struct {
	cg       *CompiledGraph[S]
	cfg      runConfig
	ec       *executionContext
	logger   *slog.Logger
	threadID string
	runID    string

	// steps counts supersteps executed by this invocation.
	steps int
	// lastStep is the step of the last checkpoint written or loaded.
	lastStep int
}

// prepare applies options and acquires the thread lock.
func (cg *CompiledGraph[S]) prepare(ctx Context, opts []RunOption) (*runner[S], lock.UnlockFunc, error) {
	if ctx == nil {
		return nil, nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointer != nil && cfg.threadID == "" {
		return nil, nil, ErrThreadIDRequired
	}

	unlock := lock.UnlockFunc(func(context.Context) error { return nil })
	if cfg.threadID != "" {
		u, err := cfg.locker.TryLock(ctx, cfg.threadID)
		if errors.Is(err, lock.ErrLocked) {
			return nil, nil, fmt.Errorf("%w: %s", ErrThreadBusy, cfg.threadID)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("lock thread %s: %w", cfg.threadID, err)
		}
		unlock = u
	}

	ec := asExecutionContext(ctx).withRun(ctx, cfg.threadID)
	logger := cfg.logger
	if logger == nil {
		logger = ec.logger
	}

	return &runner[S]{
		cg:       cg,
		cfg:      cfg,
		ec:       ec,
		logger:   logger,
		threadID: cfg.threadID,
		runID:    ec.runID,
		lastStep: -1,
	}, unlock, nil
}

// release drops the thread lock, even if the run context was cancelled.
func (r *runner[S]) release(unlock lock.UnlockFunc) {
	if err := unlock(context.WithoutCancel(r.ec)); err != nil {
		r.logger.Warn("failed to release thread lock",
			slog.String("thread_id", r.threadID),
			slog.String("error", err.Error()))
	}
}

// observe wraps a run body with run-level logging, metrics and tracing.
func (r *runner[S]) observe(start int, body func() (Result[S], error)) (res Result[S], err error) {
	startTime := time.Now()
	observability.LogRunStart(r.logger, r.runID, r.threadID, start)

	if r.cfg.tracingEnabled {
		spanCtx, span := r.cfg.spans.StartRunSpan(r.ec, r.cfg.graphName, r.runID, r.threadID)
		r.ec = r.ec.withParent(spanCtx)
		defer func() {
			r.cfg.spans.EndSpanWithError(span, err)
		}()
	}

	res, err = body()

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())
	if err != nil {
		r.cfg.metrics.RecordGraphRun(r.ec, "error", duration)
		observability.LogRunError(r.logger, r.runID, err, durationMs, failedFrontier(err))
		return res, err
	}
	r.cfg.metrics.RecordGraphRun(r.ec, string(res.Status), duration)
	observability.LogRunComplete(r.logger, r.runID, string(res.Status), durationMs, r.steps)
	return res, nil
}

// failedFrontier extracts the frontier from errors that carry one.
func failedFrontier(err error) []string {
	var nodeErr *NodeError
	var panicErr *PanicError
	var maxErr *MaxStepsError
	var cancelErr *CancellationError
	switch {
	case errors.As(err, &cancelErr):
		return cancelErr.Frontier
	case errors.As(err, &maxErr):
		return maxErr.Frontier
	case errors.As(err, &panicErr):
		return []string{panicErr.NodeID}
	case errors.As(err, &nodeErr):
		return []string{nodeErr.NodeID}
	}
	return nil
}

// loop runs supersteps until the frontier drains or a node suspends.
// The first step may be a partial one: only the run nodes execute,
// with resume values, while routing covers the whole frontier.
func (r *runner[S]) loop(state S, frontier, run []string, resume map[string]any, pending map[string]Update[S], step int, src checkpoint.Source) (Result[S], error) {
	for len(frontier) > 0 {
		if r.steps >= r.cfg.maxSteps {
			return r.result(state, StatusRunning, nil), &MaxStepsError{
				Max:      r.cfg.maxSteps,
				Frontier: frontier,
				State:    state,
			}
		}

		if err := r.ec.Err(); err != nil {
			return r.result(state, StatusRunning, nil), &CancellationError{
				Step:     step,
				Frontier: frontier,
				State:    state,
				Cause:    err,
			}
		}

		out, err := r.superstep(state, frontier, run, resume, pending, step, src)
		if err != nil {
			return r.result(out.state, StatusRunning, nil), err
		}
		r.steps++

		if len(out.interrupts) > 0 {
			return r.result(out.state, StatusSuspended, out.interrupts), nil
		}

		state = out.state
		frontier, run = out.next, out.next
		resume, pending, src = nil, nil, checkpoint.SourceLoop
		step++
	}

	return r.result(state, StatusDone, nil), nil
}

// latest loads the thread's newest checkpoint, or nil if there is none.
func (r *runner[S]) latest() (*checkpoint.Checkpoint, error) {
	if r.cfg.checkpointer == nil {
		return nil, nil
	}
	cp, err := r.cfg.checkpointer.Latest(r.ec, r.threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &CheckpointError{Step: -1, Op: "load", Err: err}
	}
	if cp.Version != checkpoint.Version {
		return nil, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}
	return cp, nil
}

// save persists the checkpoint for a step. Without a checkpointer it only
// records the step. A suspended step stores the state it started from and
// the writes of its completed nodes, in done, separately.
func (r *runner[S]) save(step int, state S, src checkpoint.Source, ran, next []string, done map[string]Update[S], interrupts []Interrupt) error {
	r.lastStep = step
	if r.cfg.checkpointer == nil {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return &CheckpointError{Step: step, Op: "serialize", Err: fmt.Errorf("%w: %v", ErrSerializeState, err)}
	}

	cp := checkpoint.New(r.threadID, step, data).
		WithSource(src).
		WithRunID(r.runID).
		WithFrontier(ran, next)
	if len(interrupts) > 0 {
		completed, writes, err := r.encodeWrites(step, state, ran, done)
		if err != nil {
			return err
		}
		cp = cp.WithInterrupts(completed, interrupts).WithWrites(writes)
	}

	if err := r.cfg.checkpointer.Put(r.ec, cp); err != nil {
		return &CheckpointError{Step: step, Op: "save", Err: err}
	}

	observability.LogCheckpoint(r.logger, step, string(cp.Status), len(data))
	r.cfg.metrics.RecordCheckpoint(r.ec, int64(len(data)))
	return nil
}

// encodeWrites serializes the updates of the completed nodes in frontier
// order.
func (r *runner[S]) encodeWrites(step int, state S, frontier []string, done map[string]Update[S]) ([]string, map[string]json.RawMessage, error) {
	var completed []string
	writes := make(map[string]json.RawMessage, len(done))
	for _, id := range frontier {
		u, ok := done[id]
		if !ok {
			continue
		}
		raw, err := r.cg.schema.encode(state, u)
		if err != nil {
			return nil, nil, &CheckpointError{Step: step, Op: "serialize", Err: fmt.Errorf("writes of %s: %w", id, err)}
		}
		completed = append(completed, id)
		writes[id] = raw
	}
	return completed, writes, nil
}

// pendingWrites decodes the writes of the completed nodes of a suspended
// checkpoint.
func (r *runner[S]) pendingWrites(cp *checkpoint.Checkpoint) (map[string]Update[S], error) {
	done := make(map[string]Update[S], len(cp.Completed))
	for _, id := range cp.Completed {
		u := Update[S]{}
		if raw, ok := cp.Writes[id]; ok {
			var err error
			if u, err = r.cg.schema.Decode(raw); err != nil {
				return nil, &CheckpointError{Step: cp.Step, Op: "load", Err: fmt.Errorf("writes of %s: %w", id, err)}
			}
		}
		done[id] = u
	}
	return done, nil
}

// result builds a Result bound to the runner's thread.
func (r *runner[S]) result(state S, status Status, interrupts []Interrupt) Result[S] {
	return Result[S]{
		State:      state,
		Status:     status,
		Interrupts: interrupts,
		ThreadID:   r.threadID,
		Step:       r.lastStep,
	}
}

// emit forwards an event to the stream consumer, if any.
func (r *runner[S]) emit(ev Event[S]) {
	if r.cfg.emit != nil {
		r.cfg.emit(ev)
	}
}

// decodeState deserializes the state of a checkpoint.
func decodeState[S any](cp *checkpoint.Checkpoint) (S, error) {
	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return state, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	return state, nil
}
