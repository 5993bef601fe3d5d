// Package logctx carries a request-scoped logger through the context so
// use cases and event handlers log with the request's trace fields
// without threading a logger parameter everywhere.
package logctx

import (
	"context"

	"github.com/mgallardo/gamestore/internal/observability"
)

type loggerKey struct{}

// With returns a context carrying the given logger. A nil logger leaves
// the context untouched.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromOr returns the logger stored on the context, or fallback when the
// context carries none.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(observability.Logger); ok && logger != nil {
			return logger
		}
	}
	return fallback
}
