package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// With attaches a child logger carrying fields to the context. Handlers
// deeper in the call chain pick it up via From, so request-scoped fields
// like the trace id follow the request without threading a logger around.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, contextKey{}, From(ctx).With(fields...))
}

// From returns the context's logger, falling back to the process default.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
