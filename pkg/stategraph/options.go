package stategraph

import (
	"log/slog"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/lock"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

const (
	// DefaultMaxSteps is the default step limit of a single invocation.
	DefaultMaxSteps = 1000

	// MaxStepsLimit is the largest accepted step limit.
	MaxStepsLimit = 100000
)

// defaultLocker serializes runs per thread within the process.
var defaultLocker lock.Locker = lock.NewLocal()

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxSteps       int
	maxConcurrency int

	threadID     string
	checkpointer checkpoint.Store
	locker       lock.Locker

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
	graphName      string

	emit func(event any)
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps:  DefaultMaxSteps,
		locker:    defaultLocker,
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		graphName: "stategraph",
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of supersteps one invocation may
// execute. Default: 1000.
//
// Panics if n <= 0 or n > MaxStepsLimit.
func WithMaxSteps(n int) RunOption {
	if n <= 0 {
		panic("stategraph: max steps must be > 0")
	}
	if n > MaxStepsLimit {
		panic("stategraph: max steps exceeds limit")
	}
	return func(c *runConfig) {
		c.maxSteps = n
	}
}

// WithMaxConcurrency bounds how many nodes of one step run at once.
// 0 (the default) runs the whole frontier concurrently.
func WithMaxConcurrency(n int) RunOption {
	if n < 0 {
		panic("stategraph: max concurrency must be >= 0")
	}
	return func(c *runConfig) {
		c.maxConcurrency = n
	}
}

// WithThread binds the run to a thread. Checkpoints are keyed by thread
// and at most one run may be active on a thread at a time.
func WithThread(id string) RunOption {
	return func(c *runConfig) {
		c.threadID = id
	}
}

// WithCheckpointer persists a checkpoint after every step.
// Requires WithThread.
//
// Example:
//
//	store := checkpoint.NewMemoryStore()
//	result, err := compiled.Run(ctx, state,
//	    stategraph.WithCheckpointer(store),
//	    stategraph.WithThread("thread-1"))
func WithCheckpointer(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointer = store
	}
}

// WithLocker replaces the in-process thread lock, e.g. with lock.Redis
// when several processes share a checkpoint store.
func WithLocker(l lock.Locker) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.locker = l
		}
	}
}

// WithObservabilityLogger sets the logger for run, step and node events.
// Defaults to the Context logger.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter
// provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a custom metrics recorder, such as
// observability.NewPrometheusMetrics.
func WithMetricsRecorder(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer
// provider.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		}
	}
}

// WithSpanManager enables tracing with a custom span manager.
func WithSpanManager(sm observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if sm != nil {
			c.spans = sm
			c.tracingEnabled = true
		}
	}
}

// WithGraphName names the graph in run spans and logs.
func WithGraphName(name string) RunOption {
	return func(c *runConfig) {
		if name != "" {
			c.graphName = name
		}
	}
}

// withEmitter routes execution events to fn. Used by Stream.
func withEmitter(fn func(event any)) RunOption {
	return func(c *runConfig) {
		c.emit = fn
	}
}
