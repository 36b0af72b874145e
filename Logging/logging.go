package Logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"TaskManager/Config"
)

type ctxKey struct{}

// New builds the process logger from cfg. The returned sink is the log file,
// nil when logging to file is off; the caller closes it.
func New(cfg Config.Log) (*slog.Logger, *FileSink, error) {
	var writers []io.Writer
	var sink *FileSink

	if cfg.Console {
		writers = append(writers, os.Stdout)
	}
	if cfg.File != "" {
		var err error
		if sink, err = OpenFile(cfg.File); err != nil {
			return nil, nil, err
		}
		writers = append(writers, sink)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	return slog.New(NewHandler(out, cfg.Format, ParseLevel(cfg.Level))), sink, nil
}

// NewHandler returns a json or text handler writing to w
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// WithContext stores a request-scoped logger
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or fallback when none is set
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
