// Package logging builds the process logger and carries request scoped
// loggers through context values.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey struct{}

// Options controls how New configures the root logger.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	// Production selects debug-free JSON output.
	Production bool
	// Debug lowers the level to slog.LevelDebug outside production.
	Debug bool
}

// New returns a JSON logger. Development builds also emit source locations.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !opts.Production {
		handlerOpts.AddSource = true
		if opts.Debug {
			handlerOpts.Level = slog.LevelDebug
		}
	}
	return slog.New(slog.NewJSONHandler(out, handlerOpts))
}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// FromContextOr returns the context logger or fallback, then slog.Default.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
