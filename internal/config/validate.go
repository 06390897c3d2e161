package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Pagination.validate(); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.RPC.validate(); err != nil {
		return fmt.Errorf("rpc: %w", err)
	}
	if err := c.Live.validate(); err != nil {
		return fmt.Errorf("live: %w", err)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with / (got %q)", c.Metrics.Path)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	return nil
}

func (p PaginationConfig) validate() error {
	if p.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be > 0 (got %d)", p.DefaultLimit)
	}
	if p.MaxLimit < p.DefaultLimit {
		return fmt.Errorf("max_limit must be >= default_limit (got %d < %d)", p.MaxLimit, p.DefaultLimit)
	}
	return nil
}

func (r RPCConfig) validate() error {
	if r.MaxBatch <= 0 {
		return fmt.Errorf("max_batch must be > 0 (got %d)", r.MaxBatch)
	}
	if r.BatchConcurrency <= 0 {
		return fmt.Errorf("batch_concurrency must be > 0 (got %d)", r.BatchConcurrency)
	}
	if r.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be > 0 (got %d)", r.MaxBodyBytes)
	}
	if r.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0 (got %d)", r.RateLimit)
	}
	return nil
}

func (l LiveConfig) validate() error {
	if l.Buffer <= 0 {
		return fmt.Errorf("buffer must be > 0 (got %d)", l.Buffer)
	}
	if l.ReplayLimit <= 0 {
		return fmt.Errorf("replay_limit must be > 0 (got %d)", l.ReplayLimit)
	}
	if l.PingPeriod <= 0 || l.PingPeriod >= l.PongWait {
		return fmt.Errorf("ping_period must be > 0 and < pong_wait (got %s, %s)", l.PingPeriod, l.PongWait)
	}
	return nil
}
