// Package errs defines the error kinds shared by the mosaic pipeline.
//
// Configuration errors are reported before any work starts. I/O errors carry
// the failing path; whether they are fatal depends on the stage (the crawler
// counts and skips them, a mosaic build aborts). Invariant violations are
// programming errors and always abort.
package errs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var (
	// ErrInvariant marks a violated precondition (wrong vector length, Solve
	// before all rows were added, non-square tile).
	ErrInvariant = errors.New("invariant violation")

	// ErrFallback is returned by an accelerated backend that cannot serve a
	// call. The caller retries on the reference implementation.
	ErrFallback = errors.New("falling back to reference backend")
)

// ConfigError reports a parameter outside its valid range.
type ConfigError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

// IOError reports a failed read, decode or write of a file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Invariantf returns an error wrapping ErrInvariant.
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsIO reports whether err is (or wraps) an IOError.
func IsIO(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// NopLogger returns a logger that discards everything. Components use it
// when their config carries no logger.
func NopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}

// NewCommandLogger returns the text logger the commands write to w: Info and
// above, or Debug when verbose is set.
func NewCommandLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
