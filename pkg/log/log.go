// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// InitStructureLogConfig initializes slog's default logger. The level is taken
// from LOG_LEVEL (debug, info, warn, error; default info) and the output
// format from LOG_FORMAT (json or text; default text, which suits an
// interactively run sync tool).
func InitStructureLogConfig() {
	SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))
}

// SetLevel replaces the default logger with one at the given level, keeping
// the configured format. Used by the --verbose/--debug flags.
func SetLevel(level slog.Level) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: os.Getenv("LOG_ADD_SOURCE") == "true",
	}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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
