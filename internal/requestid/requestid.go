// Package requestid generates and propagates request IDs for the HTTP
// facade, so a UI-layer trace ID survives into the engine's logs.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the request ID header exchanged with the UI layer.
const Header = "X-Request-ID"

type ctxKey struct{}

// WithRequestID returns a context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID carried by ctx, or empty when absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ensure returns the incoming ID when the caller supplied one and mints a
// new one otherwise.
func Ensure(incoming string) string {
	if incoming != "" {
		return incoming
	}
	return uuid.New().String()
}
