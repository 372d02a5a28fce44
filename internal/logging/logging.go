// Package logging provides structured logging setup for the comment loader.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Level is a slog level parsed from configuration.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// ParseLevel converts a textual log level into a Level. Unknown values mean info.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// NewLogger builds a logger writing to w.
// Dev mode uses colorized human-readable text; prod uses JSON.
func NewLogger(w io.Writer, level Level, devMode bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	if devMode {
		handler = tint.NewHandler(w, &tint.Options{
			Level: slog.Level(level),
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.Level(level),
		})
	}
	return slog.New(handler)
}

// Setup installs a stderr logger as the slog default and returns it.
func Setup(devMode bool, level Level) *slog.Logger {
	logger := NewLogger(os.Stderr, level, devMode)
	slog.SetDefault(logger)
	return logger
}
