/*
Package stategraph provides a state-graph execution engine for LLM
workflows.

# Overview

A graph is a set of named nodes over a shared, typed state. Each node
reads the state and returns a partial update; the executor merges updates
by per-field policy and decides which nodes run next. Execution proceeds
in supersteps: every node of the current frontier runs concurrently
against the same input state, and the updates are merged in frontier order
so results are deterministic regardless of which node finishes first.

# State Schema

Fields are declared on a Schema with a merge policy:

	type Essay struct {
	    Text     string   `json:"text"`
	    Feedback []string `json:"feedback"`
	    Score    float64  `json:"score"`
	}

	schema := stategraph.NewSchema[Essay]()
	text := stategraph.ReplaceField(schema, "text", func(s *Essay) *string { return &s.Text }).Required()
	feedback := stategraph.AppendField(schema, "feedback", func(s *Essay) *[]string { return &s.Feedback })
	score := stategraph.ReplaceField(schema, "score", func(s *Essay) *float64 { return &s.Score })

Replace fields keep the last write of a step; Append fields concatenate
every write in merge order.

# Building and Running

	graph := stategraph.NewGraph(schema).
	    AddNode("language", evalLanguage).
	    AddNode("analysis", evalAnalysis).
	    AddNode("final", finalEvaluation).
	    AddEdge(stategraph.START, "language").
	    AddEdge(stategraph.START, "analysis").
	    AddEdge("language", "final").
	    AddEdge("analysis", "final").
	    AddEdge("final", stategraph.END)

	compiled, err := graph.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := stategraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, Essay{Text: essay})

Compile reports every structural problem at once in a *ConfigError.
Nodes listed twice in one frontier run once (fan-in).

# Conditional Routing

Routers choose from a closed set of labels declared up front, so Compile
can check that every label leads somewhere:

	type verdict string

	graph.AddConditionalEdge("evaluate", stategraph.Route(
	    func(ctx stategraph.Context, s Tweet) verdict {
	        if s.Approved {
	            return "approved"
	        }
	        return "needs_improvement"
	    }, "approved", "needs_improvement").
	    To("approved", stategraph.END).
	    To("needs_improvement", "optimize"))

A label outside the declared set at run time fails with *RouterError.

# Checkpointing and Threads

With a checkpointer, each step is persisted under a thread ID:

	store, err := checkpoint.NewSQLiteStore("./checkpoints.db")
	result, err := compiled.Run(ctx, state,
	    stategraph.WithCheckpointer(store),
	    stategraph.WithThread("thread-1"))

Backends: checkpoint.MemoryStore, checkpoint.SQLiteStore and
checkpoint.RedisStore. GetState and History inspect a thread; Invoke
continues one with new input. A thread runs at most one invocation at a
time (ErrThreadBusy).

# Human in the Loop

A node suspends the thread by returning Suspend:

	func approve(ctx stategraph.Context, s Order) (stategraph.Update[Order], error) {
	    answer, ok, err := stategraph.ResumeValue[string](ctx)
	    if err != nil {
	        return stategraph.Update[Order]{}, err
	    }
	    if !ok {
	        return stategraph.Suspend[Order](map[string]any{"question": "approve?"}), nil
	    }
	    return stategraph.Writes(approved.Set(answer == "yes")), nil
	}

The run returns Result.Status == StatusSuspended with the pending
interrupts. A suspended step is not merged; the writes of its finished
nodes wait in the checkpoint. Resume re-enters only the suspended nodes,
against the state the step started from:

	result, err = compiled.Resume(ctx, store, "thread-1", &stategraph.Command{Resume: "yes"})

# Streaming

Stream and StreamResume yield node_end, step_end, interrupt and done
events through a range-over-func iterator.

# Error Handling

Errors are typed and wrap sentinels for errors.Is/As:

	var nodeErr *stategraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

Node panics are recovered into *PanicError with the stack trace.
Cancellation yields *CancellationError and exceeding WithMaxSteps yields
*MaxStepsError.

# Observability

Runs log through slog. WithMetrics and WithTracing enable OpenTelemetry
instruments and spans; WithMetricsRecorder accepts the Prometheus
recorder from the observability package.
*/
package stategraph
