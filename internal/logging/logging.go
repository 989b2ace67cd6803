// Package logging provides structured logging on top of log/slog with a
// per-run identifier carried through context.
package logging

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// RunIDKey is the context key for run identifiers.
const RunIDKey ContextKey = "run_id"

var defaultLogger *slog.Logger

func init() {
	InitLogger(LevelInfo, FormatText, os.Stderr)
}

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level; anything
// else is LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Format represents a log output format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// InitLogger replaces the global logger. Results go to stdout, so logs
// normally go to stderr.
func InitLogger(level Level, format Format, w io.Writer) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// Or returns l, or the global logger when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return defaultLogger
}

// NewRunID returns a new lexically sortable run identifier.
func NewRunID() string {
	return ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns l (or the global logger) annotated with the context's run ID.
func FromContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	logger := Or(l)
	if id := GetRunID(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	return logger
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// InfoContext logs an info message carrying the context's run ID.
func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx, nil).Info(msg, args...)
}

// ErrorContext logs an error message carrying the context's run ID.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx, nil).Error(msg, args...)
}
