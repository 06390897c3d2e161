package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/social-backend/internal/config"
)

const serviceName = "social-backend"

// redactedKeys are attribute keys whose values never reach the log.
var redactedKeys = map[string]bool{
	"authorization": true,
	"token":         true,
	"jwt_secret":    true,
}

// NewLogger builds the process logger writing to stderr and installs it as
// the slog default. Every record carries the service name and version.
//
// Format "json" is for production; "text" adds source locations for
// development. Level is debug, info, warn or error; anything else is info.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	text := strings.EqualFold(cfg.Format, "text")
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   text,
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("version", Version),
	)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
