package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
	t.Setenv("AUTH_JWT_SECRET", "this-is-a-very-long-jwt-secret-for-testing-32+")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"
  write_timeout: "15s"
  idle_timeout: "30s"
  shutdown_timeout: "5s"

database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2
  migrate_on_start: false

auth:
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"
  jwt_issuer: "test"

pagination:
  default_limit: 10
  max_limit: 50

rpc:
  max_batch: 20
  batch_concurrency: 4
  loader_wait: "1ms"

live:
  buffer: 16
  replay_limit: 200
  ping_period: "20s"
  pong_wait: "30s"

log:
  level: "debug"
  format: "text"

metrics:
  enabled: true
  path: "/internal/metrics"
  namespace: "test"
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Server
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server.read_timeout = %v, want %v", cfg.Server.ReadTimeout, 5*time.Second)
	}

	// Database
	if cfg.Database.MaxConns != 10 {
		t.Errorf("database.max_conns = %d, want 10", cfg.Database.MaxConns)
	}
	if cfg.Database.MigrateOnStart {
		t.Error("database.migrate_on_start should be false")
	}

	// Auth
	if cfg.Auth.JWTIssuer != "test" {
		t.Errorf("auth.jwt_issuer = %q", cfg.Auth.JWTIssuer)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("auth.access_token_ttl = %v, want 15m (default)", cfg.Auth.AccessTokenTTL)
	}

	// Pagination
	if cfg.Pagination.DefaultLimit != 10 || cfg.Pagination.MaxLimit != 50 {
		t.Errorf("pagination = %+v", cfg.Pagination)
	}

	// RPC
	if cfg.RPC.MaxBatch != 20 {
		t.Errorf("rpc.max_batch = %d, want 20", cfg.RPC.MaxBatch)
	}
	if cfg.RPC.LoaderWait != time.Millisecond {
		t.Errorf("rpc.loader_wait = %v, want 1ms", cfg.RPC.LoaderWait)
	}
	if cfg.RPC.MaxBodyBytes != 1<<20 {
		t.Errorf("rpc.max_body_bytes = %d, want default", cfg.RPC.MaxBodyBytes)
	}

	// Live
	if cfg.Live.Buffer != 16 || cfg.Live.ReplayLimit != 200 {
		t.Errorf("live = %+v", cfg.Live)
	}
	if cfg.Live.WriteWait != 10*time.Second {
		t.Errorf("live.write_wait = %v, want 10s (default)", cfg.Live.WriteWait)
	}

	// Log
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log.format = %q, want %q", cfg.Log.Format, "text")
	}

	// Metrics
	if cfg.Metrics.Path != "/internal/metrics" || cfg.Metrics.Namespace != "test" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PAGINATION_MAX_LIMIT", "75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("server.port = %d, want 3000 (ENV override)", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
	if cfg.Pagination.MaxLimit != 75 {
		t.Errorf("pagination.max_limit = %d, want 75 (ENV override)", cfg.Pagination.MaxLimit)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)

	// unset CONFIG_PATH so the default path is used and found absent
	t.Setenv("CONFIG_PATH", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Pagination.DefaultLimit != 20 || cfg.Pagination.MaxLimit != 100 {
		t.Errorf("pagination = %+v, want defaults", cfg.Pagination)
	}
	if cfg.Live.PingPeriod != 54*time.Second {
		t.Errorf("live.ping_period = %v, want 54s", cfg.Live.PingPeriod)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics = %+v, want defaults", cfg.Metrics)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "jwt secret too short", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: "jwt_secret"},
		{name: "jwt secret empty", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "default limit zero", mutate: func(c *Config) { c.Pagination.DefaultLimit = 0 }, wantErr: "default_limit"},
		{name: "max below default", mutate: func(c *Config) { c.Pagination.MaxLimit = 5 }, wantErr: "max_limit"},
		{name: "max equals default", mutate: func(c *Config) { c.Pagination.MaxLimit = 20 }},
		{name: "batch zero", mutate: func(c *Config) { c.RPC.MaxBatch = 0 }, wantErr: "max_batch"},
		{name: "concurrency zero", mutate: func(c *Config) { c.RPC.BatchConcurrency = 0 }, wantErr: "batch_concurrency"},
		{name: "body limit zero", mutate: func(c *Config) { c.RPC.MaxBodyBytes = 0 }, wantErr: "max_body_bytes"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RPC.RateLimit = -1 }, wantErr: "rate_limit"},
		{name: "rate limit disabled", mutate: func(c *Config) { c.RPC.RateLimit = 0 }},
		{name: "live buffer zero", mutate: func(c *Config) { c.Live.Buffer = 0 }, wantErr: "buffer"},
		{name: "replay limit zero", mutate: func(c *Config) { c.Live.ReplayLimit = 0 }, wantErr: "replay_limit"},
		{name: "ping not before pong", mutate: func(c *Config) { c.Live.PingPeriod = c.Live.PongWait }, wantErr: "ping_period"},
		{name: "metrics path relative", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: "metrics.path"},
		{name: "metrics disabled ignores path", mutate: func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Path = "" }},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

// validConfig returns a Config that passes all validation checks.
func validConfig() Config {
	return Config{
		Auth: AuthConfig{
			JWTSecret: "this-is-a-very-long-jwt-secret-for-testing-32+",
		},
		Pagination: PaginationConfig{DefaultLimit: 20, MaxLimit: 100},
		RPC:        RPCConfig{MaxBatch: 50, BatchConcurrency: 8, MaxBodyBytes: 1 << 20},
		Live: LiveConfig{
			Buffer:      64,
			ReplayLimit: 100,
			WriteWait:   10 * time.Second,
			PongWait:    60 * time.Second,
			PingPeriod:  54 * time.Second,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "social"},
	}
}

func TestLoadFrom_OptionalMissingFile(t *testing.T) {
	validEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.JWTIssuer != "social" {
		t.Errorf("auth.jwt_issuer = %q, want default", cfg.Auth.JWTIssuer)
	}
}
