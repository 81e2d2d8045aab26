// Package logging provides the key/value logger shared by every component.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger provides structured logging with a component prefix.
type Logger struct {
	prefix string
	logger *slog.Logger
}

// Option configures a Logger.
type Option func(*options)

type options struct {
	w     io.Writer
	debug bool
	ring  *Ring
}

// WithWriter sets the output (default: os.Stderr)
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.w = w
	}
}

// WithDebug enables debug-level messages.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithRing also copies every line into r.
func WithRing(r *Ring) Option {
	return func(o *options) {
		o.ring = r
	}
}

// New creates a logger whose messages are tagged with prefix.
func New(prefix string, opts ...Option) *Logger {
	o := options{w: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	w := o.w
	if o.ring != nil {
		w = io.MultiWriter(o.w, o.ring)
	}
	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{prefix: prefix, logger: slog.New(h).With("component", prefix)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New("discard", WithWriter(io.Discard))
}

// Named returns a logger for a sub-component sharing the same output.
func (l *Logger) Named(prefix string) *Logger {
	return &Logger{prefix: prefix, logger: l.logger.With("component", prefix)}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

// Enabled reports whether debug messages are being written.
func (l *Logger) Enabled() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

// Ring keeps the most recent log lines for a debug view.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRing creates a ring holding up to n lines.
func NewRing(n int) *Ring {
	if n < 1 {
		n = 1
	}
	return &Ring{lines: make([]string, n)}
}

// Write implements io.Writer. Each call may carry one or more lines.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.lines[r.next] = line
		r.next = (r.next + 1) % len(r.lines)
		if r.next == 0 {
			r.full = true
		}
	}
	return len(p), nil
}

// Lines returns the stored lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]string(nil), r.lines[:r.next]...)
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	return append(out, r.lines[:r.next]...)
}

// String joins the stored lines.
func (r *Ring) String() string {
	return strings.Join(r.Lines(), "\n")
}
