// Package logging builds the coordinator's slog loggers and carries request
// IDs into log attributes.
package logging

import (
	"context"
	"log/slog"
	"os"

	"rss-coordinator/internal/handler/http/requestid"
)

// level maps LOG_LEVEL to a slog level. Unknown or unset values mean info.
func level() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
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

// NewLogger returns a JSON logger at the level named by LOG_LEVEL
// (debug, info, warn, error; default info). Source locations are attached
// when the level is warn-or-lower so debug runs show where a line came from.
func NewLogger() *slog.Logger {
	lvl := level()
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelWarn,
	}))
}

// NewTextLogger is NewLogger with human-readable text output, for local runs.
func NewTextLogger() *slog.Logger {
	lvl := level()
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelWarn,
	}))
}

// WithRequestID returns logger with the context's request ID attached, or
// logger unchanged when the context carries none.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With("request_id", reqID)
}
