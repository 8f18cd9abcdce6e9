// Package logging builds the application logger and carries request-scoped
// loggers on a context.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type ctxKey struct{}

// New creates a [log.Logger] writing to w with timestamps and caller reporting
// enabled. The writer defaults to [os.Stderr]; an unknown level falls back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// WithLogger stores logger on ctx.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or the package default.
func FromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*log.Logger); ok && logger != nil {
			return logger
		}
	}
	return log.Default()
}
