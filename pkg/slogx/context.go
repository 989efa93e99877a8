package slogx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithContext attaches a logger to the context. Handlers downstream pick it
// up with FromContext, inheriting whatever request attributes the middleware
// bound.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the context's logger, falling back to the process
// default so callers never get nil.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
