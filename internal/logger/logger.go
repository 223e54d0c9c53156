package logger

import (
	"io"
	"log/slog"
	"strings"
)

// Format selects the slog handler.
type Format int

const (
	// JSON is used by the gateway.
	JSON Format = iota
	// Text is used by the CLI.
	Text
)

// Level resolves the log level for an environment and an explicit LOG_LEVEL.
// Development always logs at debug.
func Level(env, level string) slog.Level {
	if env == "development" {
		return slog.LevelDebug
	}

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

// Setup configures structured logging to w and installs it as the default logger.
func Setup(w io.Writer, format Format, level slog.Level) *slog.Logger {
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if format == Text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}
