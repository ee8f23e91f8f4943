package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// session is the per-command runtime built from config.
type session struct {
	cfg     config.Config
	backend *config.Backend
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	tracer  *sdktrace.TracerProvider
	server  *http.Server
}

func (a *App) openSession() (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	b, err := cfg.Open()
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:     cfg,
		backend: b,
		logger:  cfg.Logger(a.stderr),
		metrics: observability.NoopMetrics{},
	}
	if cfg.Tracing.Enabled {
		s.tracer = newTracerProvider(s.logger)
		s.spans = observability.NewSpanManagerWithTracer(s.tracer.Tracer("stategraph"))
	}
	if cfg.Metrics.Addr != "" {
		if err := s.serveMetrics(); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	s.logger.Debug("session opened", "store", cfg.Store.Backend, "metrics_addr", cfg.Metrics.Addr)
	return s, nil
}

// serveMetrics exposes a Prometheus registry for the lifetime of the
// session.
func (s *session) serveMetrics() error {
	reg := prometheus.NewRegistry()
	s.metrics = observability.NewPrometheusMetrics(reg)

	ln, err := net.Listen("tcp", s.cfg.Metrics.Addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	s.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (s *session) Close() error {
	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.server != nil {
		errs = append(errs, s.server.Shutdown(ctx))
	}
	if s.tracer != nil {
		errs = append(errs, s.tracer.Shutdown(ctx))
	}
	errs = append(errs, s.backend.Close())
	return errors.Join(errs...)
}

// context wraps ctx with the session logger and a model client.
func (s *session) context(ctx context.Context, llmClient llm.Client) stategraph.Context {
	return stategraph.NewContext(ctx,
		stategraph.WithLogger(s.logger),
		stategraph.WithLLM(llmClient))
}

// options returns the run options for a thread of the named workflow.
func (s *session) options(workflow, threadID string, maxSteps int) []stategraph.RunOption {
	if maxSteps <= 0 {
		maxSteps = s.cfg.Run.MaxSteps
	}
	opts := []stategraph.RunOption{
		stategraph.WithCheckpointer(s.backend.Store),
		stategraph.WithLocker(s.backend.Locker),
		stategraph.WithMaxSteps(maxSteps),
		stategraph.WithMaxConcurrency(s.cfg.Run.MaxConcurrency),
		stategraph.WithObservabilityLogger(s.logger),
		stategraph.WithMetricsRecorder(s.metrics),
		stategraph.WithGraphName(workflow),
	}
	if s.spans != nil {
		opts = append(opts, stategraph.WithSpanManager(s.spans))
	}
	if threadID != "" {
		opts = append(opts, stategraph.WithThread(threadID))
	}
	return opts
}
