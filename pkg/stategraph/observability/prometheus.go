package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements MetricsRecorder with Prometheus collectors.
type PrometheusMetrics struct {
	nodeExecutions *prometheus.CounterVec
	nodeErrors     *prometheus.CounterVec
	nodeLatency    *prometheus.HistogramVec
	stepWidth      prometheus.Histogram
	graphRuns      *prometheus.CounterVec
	graphLatency   *prometheus.HistogramVec
	interrupts     *prometheus.CounterVec
	checkpointSize prometheus.Histogram
}

// Compile-time interface check.
var _ MetricsRecorder = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them on reg.
// Panics if a collector is already registered, as MustRegister does.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		nodeExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "node_executions_total",
			Help:      "Number of node executions.",
		}, []string{"node_id"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "node_errors_total",
			Help:      "Number of node execution errors.",
		}, []string{"node_id"}),
		nodeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "node_duration_seconds",
			Help:      "Node execution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node_id"}),
		stepWidth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "step_width",
			Help:      "Nodes executed per superstep.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		}),
		graphRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "graph_runs_total",
			Help:      "Number of graph runs by final status.",
		}, []string{"status"}),
		graphLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "graph_duration_seconds",
			Help:      "Graph run latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		interrupts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "interrupts_total",
			Help:      "Number of thread suspensions.",
		}, []string{"node_id"}),
		checkpointSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "checkpoint_size_bytes",
			Help:      "Checkpoint size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),
	}

	reg.MustRegister(
		m.nodeExecutions,
		m.nodeErrors,
		m.nodeLatency,
		m.stepWidth,
		m.graphRuns,
		m.graphLatency,
		m.interrupts,
		m.checkpointSize,
	)
	return m
}

// RecordNodeExecution implements MetricsRecorder.
func (m *PrometheusMetrics) RecordNodeExecution(_ context.Context, nodeID string, duration time.Duration, err error) {
	m.nodeExecutions.WithLabelValues(nodeID).Inc()
	m.nodeLatency.WithLabelValues(nodeID).Observe(duration.Seconds())
	if err != nil {
		m.nodeErrors.WithLabelValues(nodeID).Inc()
	}
}

// RecordStep implements MetricsRecorder.
func (m *PrometheusMetrics) RecordStep(_ context.Context, width int, _ time.Duration) {
	m.stepWidth.Observe(float64(width))
}

// RecordGraphRun implements MetricsRecorder.
func (m *PrometheusMetrics) RecordGraphRun(_ context.Context, status string, duration time.Duration) {
	m.graphRuns.WithLabelValues(status).Inc()
	m.graphLatency.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordInterrupt implements MetricsRecorder.
func (m *PrometheusMetrics) RecordInterrupt(_ context.Context, nodeID string) {
	m.interrupts.WithLabelValues(nodeID).Inc()
}

// RecordCheckpoint implements MetricsRecorder.
func (m *PrometheusMetrics) RecordCheckpoint(_ context.Context, sizeBytes int64) {
	m.checkpointSize.Observe(float64(sizeBytes))
}
