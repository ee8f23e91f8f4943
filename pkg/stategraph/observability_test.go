package stategraph

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func fanOutGraph(f testFields) *CompiledGraph[testState] {
	return mustCompile(NewGraph(f.schema).
		AddNode("a", f.logNode("a")).
		AddNode("b", f.logNode("b")).
		AddNode("c", f.incNode()).
		AddEdge(START, "a").
		AddEdge(START, "b").
		AddEdge("a", "c").
		AddEdge("b", "c").
		AddEdge("c", END))
}

func TestObservability_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, err := fanOutGraph(newTestFields()).Run(testCtx(), testState{},
		WithSpanManager(observability.NewSpanManagerWithTracer(tp.Tracer("test"))),
		WithGraphName("fanout"))
	require.NoError(t, err)

	names := map[string]int{}
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["stategraph.run"])
	assert.Equal(t, 2, names["stategraph.step"])
	assert.Equal(t, 1, names["stategraph.node.a"])
	assert.Equal(t, 1, names["stategraph.node.b"])
	assert.Equal(t, 1, names["stategraph.node.c"])
}

func TestObservability_OtelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	_, err := fanOutGraph(newTestFields()).Run(testCtx(), testState{},
		WithMetricsRecorder(observability.NewMetricsRecorderWithMeter(mp.Meter("test"))))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	assert.True(t, found["stategraph.node.executions"])
	assert.True(t, found["stategraph.steps"])
	assert.True(t, found["stategraph.graph.runs"])
}

func TestObservability_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewPrometheusMetrics(reg)
	store := checkpoint.NewMemoryStore()

	_, err := approvalGraph(newTestFields()).Run(testCtx(), testState{},
		WithMetricsRecorder(metrics), WithCheckpointer(store), WithThread("t"))
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "stategraph_interrupts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "stategraph_graph_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestObservability_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := fanOutGraph(newTestFields()).Run(testCtx(), testState{},
		WithObservabilityLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"graph run starting"`)
	assert.Contains(t, out, `"msg":"graph run completed"`)
	assert.Contains(t, out, `"node_id":"c"`)
}
