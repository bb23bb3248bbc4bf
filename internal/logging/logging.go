// Package logging wraps log/slog with popreader-specific helpers so every
// component logs with the same field names.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, a text handler writing to stderr at info level is used.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewWithOptions builds a Logger writing to w in the given format
// ("text" or "json") at the given level ("debug", "info", "warn", "error").
func NewWithOptions(w io.Writer, format, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// Noop returns a Logger that discards all output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// WithComponent tags the logger with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// LogIngest logs the outcome of reading the delimited input.
func (l *Logger) LogIngest(ctx context.Context, path string, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "ingest completed",
		"path", path,
		"records", records,
	)
}

// LogPersist logs a store persist.
func (l *Logger) LogPersist(ctx context.Context, path string, records int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "store persisted",
		"path", path,
		"records", records,
		"bytes", bytes,
	)
}

// LogDuplicates warns when the identifier index shadowed records.
func (l *Logger) LogDuplicates(ctx context.Context, duplicates int) {
	if duplicates == 0 {
		return
	}
	l.WarnContext(ctx, "duplicate identifiers, later records win",
		"duplicates", duplicates,
	)
}

// LogUpload logs an artifact upload.
func (l *Logger) LogUpload(ctx context.Context, localPath, objectPath string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upload failed",
			"local_path", localPath,
			"object_path", objectPath,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "artifact uploaded",
		"local_path", localPath,
		"object_path", objectPath,
	)
}
