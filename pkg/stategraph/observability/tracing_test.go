package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a span manager backed by an in-memory exporter.
func setupTracingTest(t *testing.T) (SpanManager, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	})

	return NewSpanManagerWithTracer(tp.Tracer("stategraph")), exporter
}

// attrValue returns the string form of a span attribute.
func attrValue(attrs []attribute.KeyValue, key string) string {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.Emit()
		}
	}
	return ""
}

func TestSpanManager_Hierarchy(t *testing.T) {
	sm, exporter := setupTracingTest(t)
	ctx := context.Background()

	runCtx, runSpan := sm.StartRunSpan(ctx, "quadratic", "run-1", "thread-1")
	stepCtx, stepSpan := sm.StartStepSpan(runCtx, 2, []string{"a", "b"})
	_, nodeSpan := sm.StartNodeSpan(stepCtx, "a")

	sm.EndSpanWithError(nodeSpan, nil)
	sm.EndSpanWithError(stepSpan, nil)
	sm.EndSpanWithError(runSpan, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	node, step, run := spans[0], spans[1], spans[2]
	assert.Equal(t, "stategraph.node.a", node.Name)
	assert.Equal(t, "stategraph.step", step.Name)
	assert.Equal(t, "stategraph.run", run.Name)

	assert.Equal(t, step.SpanContext.SpanID(), node.Parent.SpanID())
	assert.Equal(t, run.SpanContext.SpanID(), step.Parent.SpanID())

	assert.Equal(t, "quadratic", attrValue(run.Attributes, "graph.name"))
	assert.Equal(t, "thread-1", attrValue(run.Attributes, "thread.id"))
	assert.Equal(t, "2", attrValue(step.Attributes, "step"))
	assert.Equal(t, "a,b", attrValue(step.Attributes, "step.frontier"))
	assert.Equal(t, "a", attrValue(node.Attributes, "node.id"))
	assert.Equal(t, codes.Ok, run.Status.Code)
}

func TestSpanManager_EndSpanWithError(t *testing.T) {
	sm, exporter := setupTracingTest(t)

	_, span := sm.StartNodeSpan(context.Background(), "failing")
	sm.EndSpanWithError(span, errors.New("kaboom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "kaboom", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)

	assert.NotPanics(t, func() { sm.EndSpanWithError(nil, nil) })
}

func TestSpanManager_AddSpanEvent(t *testing.T) {
	sm, exporter := setupTracingTest(t)

	ctx, span := sm.StartRunSpan(context.Background(), "g", "run-1", "")
	sm.AddSpanEvent(ctx, "interrupt", attribute.String("node_id", "approve"))
	sm.EndSpanWithError(span, nil)

	// No active span: silently ignored.
	sm.AddSpanEvent(context.Background(), "ignored")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "interrupt", spans[0].Events[0].Name)
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	runCtx, span := sm.StartRunSpan(ctx, "g", "r", "t")
	assert.Equal(t, ctx, runCtx)
	assert.False(t, span.IsRecording())

	stepCtx, _ := sm.StartStepSpan(ctx, 1, nil)
	assert.Equal(t, ctx, stepCtx)

	nodeCtx, _ := sm.StartNodeSpan(ctx, "n")
	assert.Equal(t, ctx, nodeCtx)

	assert.NotPanics(t, func() {
		sm.EndSpanWithError(span, errors.New("x"))
		sm.AddSpanEvent(ctx, "e")
	})
}
