package config_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValues_Accessors(t *testing.T) {
	v := config.NewValues(map[string]any{
		"name":    "svc",
		"count":   3,
		"ratio":   2.0,
		"partial": 2.5,
		"enabled": true,
		"timeout": "1m30s",
		"seconds": 5,
		"nested":  map[string]any{"inner": "x"},
	})

	assert.Equal(t, "svc", v.String("name", "d"))
	assert.Equal(t, "d", v.String("count", "d"))
	assert.Equal(t, 3, v.Int("count", 0))
	assert.Equal(t, 2, v.Int("ratio", 0))
	assert.Equal(t, 7, v.Int("partial", 7))
	assert.True(t, v.Bool("enabled", false))
	assert.Equal(t, 90*time.Second, v.Duration("timeout", 0))
	assert.Equal(t, 5*time.Second, v.Duration("seconds", 0))
	assert.Equal(t, time.Second, v.Duration("missing", time.Second))
	assert.Equal(t, "x", v.Section("nested").String("inner", ""))
	assert.False(t, v.Section("missing").Has("inner"))
	assert.True(t, v.Has("name"))
}

func TestValues_NilData(t *testing.T) {
	v := config.NewValues(nil)
	assert.False(t, v.Has("x"))
	assert.Equal(t, 4, v.Int("x", 4))
}

func TestFromYAML_NestedSections(t *testing.T) {
	v, err := config.FromYAML([]byte("store:\n  redis:\n    db: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Section("store").Section("redis").Int("db", 0))
}

func TestFromFile_Errors(t *testing.T) {
	_, err := config.FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	_, err = config.FromFile(writeFile(t, "c.toml", "a = 1"))
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(writeFile(t, "c.json", "{"))
	assert.ErrorContains(t, err, "parse json")

	_, err = config.FromFile(writeFile(t, "c.yaml", "a: [1"))
	assert.ErrorContains(t, err, "parse yaml")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 1000, cfg.Run.MaxSteps)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "stategraph.yaml", `
store:
  backend: redis
  redis:
    addr: cache:6379
    db: 3
    ttl: 24h
    prefix: "app:"
run:
  max_steps: 50
  max_concurrency: 4
log:
  level: debug
  format: json
metrics:
  addr: ":9090"
tracing:
  enabled: true
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.Store.RedisTTL)
	assert.Equal(t, "app:", cfg.Store.RedisPrefix)
	assert.Equal(t, 50, cfg.Run.MaxSteps)
	assert.Equal(t, 4, cfg.Run.MaxConcurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoad_JSONKeepsUnsetDefaults(t *testing.T) {
	path := writeFile(t, "stategraph.json", `{"store":{"backend":"memory"},"run":{"max_steps":10}}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 10, cfg.Run.MaxSteps)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stategraph.db", cfg.Store.SQLitePath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "stategraph.yaml", "run:\n  max_steps: 50\n")
	t.Setenv("STATEGRAPH_MAX_STEPS", "7")
	t.Setenv("STATEGRAPH_STORE", "memory")
	t.Setenv("STATEGRAPH_REDIS_TTL", "1h")
	t.Setenv("STATEGRAPH_TRACING", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Run.MaxSteps)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.RedisTTL)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "STATEGRAPH_LOG_FORMAT=json\nSTATEGRAPH_MAX_CONCURRENCY=3\n")
	// Registered so t.Setenv restores the variables godotenv sets.
	t.Setenv("STATEGRAPH_LOG_FORMAT", "")
	t.Setenv("STATEGRAPH_MAX_CONCURRENCY", "")
	require.NoError(t, os.Unsetenv("STATEGRAPH_LOG_FORMAT"))
	require.NoError(t, os.Unsetenv("STATEGRAPH_MAX_CONCURRENCY"))

	cfg, err := config.Load("", envFile, filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Run.MaxConcurrency)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("STATEGRAPH_MAX_STEPS", "many")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "STATEGRAPH_MAX_STEPS")
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
store:
  backend: postgres
run:
  max_steps: 0
  max_concurrency: -1
log:
  level: loud
  format: xml
`)
	_, err := config.Load(path)
	require.Error(t, err)
	for _, want := range []string{
		`unknown store backend "postgres"`,
		"run.max_steps must be in 1..100000",
		"run.max_concurrency must be >= 0",
		`unknown log level "loud"`,
		`unknown log format "xml"`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := config.Default()
	cfg.Store.SQLitePath = ""
	assert.ErrorContains(t, cfg.Validate(), "sqlite_path")
}

func TestLogger_Format(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "v", entry["k"])
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	memory := config.Default()
	memory.Store.Backend = config.BackendMemory

	sqlite := config.Default()
	sqlite.Store.SQLitePath = filepath.Join(t.TempDir(), "cp.db")

	redis := config.Default()
	redis.Store.Backend = config.BackendRedis
	redis.Store.RedisAddr = mr.Addr()
	redis.Store.RedisTTL = time.Hour

	for name, cfg := range map[string]config.Config{"memory": memory, "sqlite": sqlite, "redis": redis} {
		t.Run(name, func(t *testing.T) {
			b, err := cfg.Open()
			require.NoError(t, err)
			defer b.Close()

			cp := checkpoint.New("t1", 0, []byte(`{}`))
			require.NoError(t, b.Store.Put(ctx, cp))
			got, err := b.Store.Latest(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, 0, got.Step)

			unlock, err := b.Locker.TryLock(ctx, "t1")
			require.NoError(t, err)
			require.NoError(t, unlock(ctx))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "tape"
	_, err := cfg.Open()
	assert.Error(t, err)
}
