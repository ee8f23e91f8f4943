package stategraph

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// stepOutcome is the merged result of one superstep.
type stepOutcome[S any] struct {
	state      S
	next       []string
	interrupts []Interrupt
}

// superstep runs the nodes in run against state, merges their updates in
// frontier order, checkpoints, and computes the next frontier from every
// node in frontier. pending holds the updates of frontier nodes that
// finished in an earlier, suspended attempt at this step.
func (r *runner[S]) superstep(state S, frontier, run []string, resume map[string]any, pending map[string]Update[S], step int, src checkpoint.Source) (out stepOutcome[S], err error) {
	out.state = state
	started := time.Now()

	var stepCtx context.Context = r.ec
	if r.cfg.tracingEnabled {
		var span trace.Span
		stepCtx, span = r.cfg.spans.StartStepSpan(r.ec, step, run)
		defer func() {
			r.cfg.spans.EndSpanWithError(span, err)
		}()
	}

	updates, err := r.runNodes(stepCtx, state, run, resume, step)
	if err != nil {
		if ctxErr := r.ec.Err(); ctxErr != nil {
			return out, &CancellationError{
				Step:         step,
				Frontier:     run,
				State:        state,
				Cause:        ctxErr,
				WasExecuting: true,
			}
		}
		return out, err
	}

	done := maps.Clone(pending)
	if done == nil {
		done = make(map[string]Update[S], len(run))
	}
	var interrupts []Interrupt
	for i, id := range run {
		u := updates[i]
		if u.suspend {
			in, err := newInterrupt(id, step, u.payload)
			if err != nil {
				return out, err
			}
			interrupts = append(interrupts, in)
			continue
		}
		done[id] = u
	}

	if len(interrupts) > 0 {
		if r.cfg.checkpointer == nil {
			return out, fmt.Errorf("%w: node %s suspended", ErrCheckpointerRequired, interrupts[0].NodeID)
		}
		if err := r.save(step, state, src, frontier, nil, done, interrupts); err != nil {
			return out, err
		}
		for _, in := range interrupts {
			observability.LogInterrupt(r.logger, in.NodeID, in.ID, step)
			r.cfg.metrics.RecordInterrupt(r.ec, in.NodeID)
			r.cfg.spans.AddSpanEvent(stepCtx, "interrupt",
				attribute.String("node_id", in.NodeID),
				attribute.String("interrupt_id", in.ID))
		}
		r.emit(Event[S]{Type: EventInterrupt, Step: step, State: state, Interrupts: interrupts})
		out.interrupts = interrupts
		return out, nil
	}

	merged := state
	for _, id := range frontier {
		u, ok := done[id]
		if !ok {
			continue
		}
		if merged, err = r.cg.schema.Apply(merged, u); err != nil {
			return out, &NodeError{NodeID: id, Op: "merge", Err: err}
		}
	}
	out.state = merged

	next, err := r.route(merged, frontier, step)
	if err != nil {
		return out, err
	}
	if err := r.save(step, merged, src, frontier, next, nil, nil); err != nil {
		return out, err
	}
	out.next = next

	duration := time.Since(started)
	r.cfg.metrics.RecordStep(r.ec, len(run), duration)
	observability.LogStepComplete(r.logger, step, frontier, next, float64(duration.Milliseconds()))
	r.emit(Event[S]{Type: EventStepEnd, Step: step, State: merged, Next: next})
	return out, nil
}

// runNodes executes the nodes of one step. A single node runs inline;
// several run concurrently, each on its own clone of state, and the first
// failure cancels the rest. Updates are returned in the order of ids.
func (r *runner[S]) runNodes(ctx context.Context, state S, ids []string, resume map[string]any, step int) ([]Update[S], error) {
	updates := make([]Update[S], len(ids))
	if len(ids) == 1 {
		u, err := r.runNode(ctx, ids[0], state, resume, step)
		updates[0] = u
		return updates, err
	}

	inputs := make([]S, len(ids))
	for i, id := range ids {
		cloned, err := cloneState(state)
		if err != nil {
			return nil, &NodeError{NodeID: id, Op: "clone", Err: err}
		}
		inputs[i] = cloned
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.maxConcurrency > 0 {
		g.SetLimit(r.cfg.maxConcurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			u, err := r.runNode(gctx, id, inputs[i], resume, step)
			updates[i] = u
			return err
		})
	}
	return updates, g.Wait()
}

// runNode executes one node activation with logging, metrics and tracing.
func (r *runner[S]) runNode(ctx context.Context, id string, state S, resume map[string]any, step int) (Update[S], error) {
	fn, ok := r.cg.getNode(id)
	if !ok {
		return Update[S]{}, &NodeError{NodeID: id, Op: "lookup", Err: fmt.Errorf("%w: %s", ErrNodeNotFound, id)}
	}
	if err := ctx.Err(); err != nil {
		return Update[S]{}, err
	}

	nodeCtx := ctx
	var span trace.Span
	if r.cfg.tracingEnabled {
		nodeCtx, span = r.cfg.spans.StartNodeSpan(ctx, id)
	}

	value, hasValue := resume[id]
	ec := r.ec.withParent(nodeCtx).withNode(id, step, value, hasValue)

	observability.LogNodeStart(r.logger, id)
	started := time.Now()
	u, err := executeNode(ec, id, fn, state)
	duration := time.Since(started)

	r.cfg.metrics.RecordNodeExecution(nodeCtx, id, duration, err)
	if r.cfg.tracingEnabled {
		r.cfg.spans.EndSpanWithError(span, err)
	}
	if err != nil {
		observability.LogNodeError(r.logger, id, err)
		return u, err
	}

	fields := u.Fields()
	observability.LogNodeComplete(r.logger, id, float64(duration.Milliseconds()), fields)
	r.emit(Event[S]{Type: EventNodeEnd, Step: step, NodeID: id, Update: u, Fields: fields})
	return u, nil
}

// executeNode calls fn with panic recovery.
func executeNode[S any](ctx Context, id string, fn NodeFunc[S], state S) (u Update[S], err error) {
	defer func() {
		if rec := recover(); rec != nil {
			u = Update[S]{}
			err = &PanicError{
				NodeID: id,
				Value:  rec,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	u, err = fn(ctx, state)
	if err != nil {
		return u, &NodeError{NodeID: id, Op: "execute", Err: err}
	}
	return u, nil
}

// route computes the next frontier after the nodes in ran. Routers are
// evaluated against the merged state; plain edges contribute every target
// in declaration order. END drops a branch and repeated targets collapse
// into one activation.
func (r *runner[S]) route(state S, ran []string, step int) ([]string, error) {
	var next []string
	add := func(target string) {
		if target != END && !slices.Contains(next, target) {
			next = append(next, target)
		}
	}

	for _, id := range ran {
		rt, ok := r.cg.routes[id]
		if !ok {
			for _, target := range r.cg.edges[id] {
				add(target)
			}
			continue
		}

		label, err := r.choose(rt, id, state, step)
		if err != nil {
			return nil, err
		}
		target, ok := rt.table[label]
		if !ok {
			return nil, &RouterError{FromNode: id, Returned: label, Err: ErrLabelOutsideDomain}
		}
		add(target)
	}
	return next, nil
}

// choose evaluates a router with panic recovery.
func (r *runner[S]) choose(rt *route[S], from string, state S, step int) (label string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{
				NodeID: from,
				Value:  rec,
				Stack:  string(debug.Stack()),
			}
		}
	}()
	return rt.router.Choose(r.ec.withNode(from, step, nil, false), state), nil
}

// cloneState returns an independent copy of state for a concurrent node.
// Types implementing Cloner are cloned directly; anything else goes
// through a JSON round trip.
func cloneState[S any](state S) (S, error) {
	if c, ok := any(state).(Cloner[S]); ok {
		return c.Clone(), nil
	}

	var cloned S
	data, err := json.Marshal(state)
	if err != nil {
		return cloned, fmt.Errorf("%w: %v", ErrSerializeState, err)
	}
	if err := json.Unmarshal(data, &cloned); err != nil {
		return cloned, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	return cloned, nil
}

// newInterrupt records a suspension request raised by a node.
func newInterrupt(nodeID string, step int, payload any) (Interrupt, error) {
	in := Interrupt{ID: uuid.NewString(), NodeID: nodeID, Step: step}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return in, &NodeError{NodeID: nodeID, Op: "interrupt", Err: fmt.Errorf("encode payload: %w", err)}
		}
		in.Payload = data
	}
	return in, nil
}
