// Package logging provides the leveled Logger interface used by every
// component in the substrate. The interface and its nil-safety helpers
// mirror the teacher's own internal/logging package; the backing writer is
// log/slog since the teacher does not depend on a third-party logging
// library either.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal leveled-logging surface every component depends
// on. Components accept a Logger, never a concrete *slog.Logger, so tests
// can inject Nop() or a buffer-backed instance.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Config controls how New builds a Logger.
type Config struct {
	Level  string // "debug" | "info" | "warn" | "error"
	Format string // "text" | "json"
	Output io.Writer
}

type slogLogger struct {
	l *slog.Logger
}

// New builds a Logger from Config, defaulting to text-formatted, info-level
// output to stderr.
func New(cfg Config) Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return &slogLogger{l: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch level {
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

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (n nopLogger) With(...any) Logger { return n }

// Nop returns a Logger that discards everything. Used as the zero value
// wherever a caller does not wire a real Logger.
func Nop() Logger { return nopLogger{} }

// IsNil reports whether logger is a typed-nil or untyped-nil Logger, the
// most common way a half-wired dependency graph produces a panic on first
// use.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	if l, ok := logger.(*slogLogger); ok {
		return l == nil
	}
	return false
}

// OrNop returns logger unless it is nil (in either sense IsNil checks), in
// which case it returns Nop().
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}
