package identity

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Event is emitted for every orchestrator step. Err is set on failures.
type Event struct {
	Time      time.Time
	Operation string
	Flow      string
	Message   string
	Err       error
	Attrs     []any
}

// EventHook receives orchestrator events.
type EventHook func(Event)

// NewLogger creates a structured logger with an explicit level.
// json selects the JSON handler; otherwise text output is used.
func NewLogger(w io.Writer, level string, json bool) *slog.Logger {
	lvl := slog.LevelInfo

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// discardLogger drops everything; used when no logger is configured.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
