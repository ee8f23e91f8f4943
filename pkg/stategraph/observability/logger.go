// Package observability provides structured logging, metrics and
// distributed tracing for stategraph runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry or Prometheus
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger.
// Returns a new logger with run_id, thread_id and node_id fields.
func EnrichLogger(logger *slog.Logger, runID, threadID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("thread_id", threadID),
		slog.String("node_id", nodeID),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID, threadID string, step int) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
		slog.String("thread_id", threadID),
		slog.Int("step", step),
	)
}

// LogRunComplete logs a run that finished or suspended.
func LogRunComplete(logger *slog.Logger, runID, status string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.String("status", status),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", steps),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, frontier []string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.Any("frontier", frontier),
	)
}

// LogStepComplete logs a merged step and the frontier it produced.
func LogStepComplete(logger *slog.Logger, step int, ran, next []string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.Int("step", step),
		slog.Any("ran", ran),
		slog.Any("next", next),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64, fields []string) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
		slog.Any("fields", fields),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogInterrupt logs a node suspending the thread.
func LogInterrupt(logger *slog.Logger, nodeID, interruptID string, step int) {
	if logger == nil {
		return
	}
	logger.Info("thread suspended",
		slog.String("node_id", nodeID),
		slog.String("interrupt_id", interruptID),
		slog.Int("step", step),
	)
}

// LogResume logs a thread resuming from a checkpoint.
func LogResume(logger *slog.Logger, threadID string, step, pending int) {
	if logger == nil {
		return
	}
	logger.Info("thread resuming",
		slog.String("thread_id", threadID),
		slog.Int("from_step", step),
		slog.Int("pending_interrupts", pending),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, step int, status string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.Int("step", step),
		slog.String("status", status),
		slog.Int("size_bytes", sizeBytes),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
