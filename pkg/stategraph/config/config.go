package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the runtime configuration of the stategraph CLI and services.
type Config struct {
	Store   StoreConfig
	Run     RunConfig
	Log     LogConfig
	Metrics MetricsConfig
	Tracing TracingConfig
}

// StoreConfig selects and configures the checkpoint backend.
type StoreConfig struct {
	Backend       string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	RedisPrefix   string
}

// RunConfig holds execution limits.
type RunConfig struct {
	MaxSteps       int
	MaxConcurrency int
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string
}

// TracingConfig enables OpenTelemetry spans for runs, steps and nodes.
type TracingConfig struct {
	Enabled bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:     BackendSQLite,
			SQLitePath:  "stategraph.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "stategraph:",
		},
		Run: RunConfig{
			MaxSteps: stategraph.DefaultMaxSteps,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// fromValues overlays decoded document values onto base.
func fromValues(base Config, v Values) Config {
	store := v.Section("store")
	base.Store.Backend = store.String("backend", base.Store.Backend)
	base.Store.SQLitePath = store.String("sqlite_path", base.Store.SQLitePath)

	redis := store.Section("redis")
	base.Store.RedisAddr = redis.String("addr", base.Store.RedisAddr)
	base.Store.RedisPassword = redis.String("password", base.Store.RedisPassword)
	base.Store.RedisDB = redis.Int("db", base.Store.RedisDB)
	base.Store.RedisTTL = redis.Duration("ttl", base.Store.RedisTTL)
	base.Store.RedisPrefix = redis.String("prefix", base.Store.RedisPrefix)

	run := v.Section("run")
	base.Run.MaxSteps = run.Int("max_steps", base.Run.MaxSteps)
	base.Run.MaxConcurrency = run.Int("max_concurrency", base.Run.MaxConcurrency)

	log := v.Section("log")
	base.Log.Level = log.String("level", base.Log.Level)
	base.Log.Format = log.String("format", base.Log.Format)

	base.Metrics.Addr = v.Section("metrics").String("addr", base.Metrics.Addr)
	base.Tracing.Enabled = v.Section("tracing").Bool("enabled", base.Tracing.Enabled)
	return base
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Run.MaxSteps <= 0 || c.Run.MaxSteps > stategraph.MaxStepsLimit {
		errs = append(errs, fmt.Errorf("run.max_steps must be in 1..%d, got %d", stategraph.MaxStepsLimit, c.Run.MaxSteps))
	}
	if c.Run.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("run.max_concurrency must be >= 0, got %d", c.Run.MaxConcurrency))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Logger builds a slog logger writing to w per the log settings.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
