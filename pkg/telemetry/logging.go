package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger is the structured logger for oriel components.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to w. A nil writer discards
// everything, which is the correct default for a process whose stdout
// is the rendered UI. Pass a *slog.LevelVar as the level to make it
// adjustable at runtime.
func NewLogger(component string, level slog.Leveler, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "oriel"),
	)
	return &Logger{Logger: logger}
}

// ParseLevel maps a config level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch s {
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

// NopLogger returns a logger that drops everything.
func NopLogger() *Logger {
	return NewLogger("nop", slog.LevelError, nil)
}

// FileSink opens an append-only log file for NewLogger.
func FileSink(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log sink: %w", err)
	}
	return f, nil
}

// WithWindow returns a logger with window-specific fields.
func (l *Logger) WithWindow(windowID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("window_id", windowID))}
}

// WithSession returns a logger with session-specific fields.
func (l *Logger) WithSession(session string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("session", session))}
}

// FrameRendered logs one flushed frame.
func (l *Logger) FrameRendered(cellsChanged, bytes int, duration time.Duration) {
	l.Debug("frame rendered",
		slog.Int("cells_changed", cellsChanged),
		slog.Int("bytes", bytes),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
	)
}

// FrameAbandoned logs a composed frame that never reached the terminal.
func (l *Logger) FrameAbandoned(reason string) {
	l.Warn("frame abandoned", slog.String("reason", reason))
}

// TerminalResized logs a terminal geometry change.
func (l *Logger) TerminalResized(width, height int) {
	l.Info("terminal resized",
		slog.Int("width", width),
		slog.Int("height", height),
	)
}

// WindowCreated logs a new window.
func (l *Logger) WindowCreated(windowID, title string) {
	l.Info("window created",
		slog.String("window_id", windowID),
		slog.String("title", title),
	)
}

// WindowClosed logs a window removal.
func (l *Logger) WindowClosed(windowID string) {
	l.Info("window closed", slog.String("window_id", windowID))
}

// ConfigReloaded logs a successful configuration reload.
func (l *Logger) ConfigReloaded(path string) {
	l.Info("config reloaded", slog.String("path", path))
}

// ConfigReloadFailed logs a reload that kept the previous configuration.
func (l *Logger) ConfigReloadFailed(path string, err error) {
	l.Error("config reload failed",
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

// InputDropped logs the driver's cumulative dropped-event count.
func (l *Logger) InputDropped(total uint64) {
	l.Warn("input events dropped", slog.Uint64("total", total))
}
