// Package logx builds the daemon's single slog.Logger, grounded on the
// logger.New(level, format) call site used throughout the teacher's
// cmd/phpeek-pm (the teacher's own internal/logger package never defines
// that constructor; this is the equivalent adapted to Adasa).
package logx

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger writing to stderr, with level parsed from level
// (debug|info|warn|error, case-insensitive, defaulting to info) and format
// selecting between "json" and human-readable "text" output.
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
