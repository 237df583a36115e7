package slogx

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/currex/pkg/idx"
)

type (
	loggerKey    struct{}
	requestIDKey struct{}
)

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or the default logger outside a
// request.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// With attaches extra attributes to the logger carried by ctx.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

func withRequestID(ctx context.Context, id idx.ID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id HTTPMiddleware assigned, or "" outside a request.
func RequestID(ctx context.Context) idx.ID {
	id, _ := ctx.Value(requestIDKey{}).(idx.ID)
	return id
}
