// Package trace carries the per-request correlation identifiers the client
// attaches to outgoing calls.
package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// requestIDKey is the context key for request ID values
	requestIDKey contextKey = "request_id"
	// HeaderXRequestID is the standard header name for request correlation
	HeaderXRequestID = "X-Request-ID"
	// maxRequestIDLength bounds caller-supplied IDs so they stay header-safe
	maxRequestIDLength = 128
)

// WithRequestID adds a request ID to the context. Blank or oversized IDs are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" || len(requestID) > maxRequestIDLength || strings.ContainsAny(requestID, "\r\n") {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID from context if present
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns a context carrying a request ID, generating one when
// ctx has none. Every attempt of one logical request reuses the returned ID.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.New().String()
	return context.WithValue(ctx, requestIDKey, id), id
}

// TraceIDFromContext returns the OpenTelemetry trace ID carried by ctx, if any.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return "", false
	}
	return sc.TraceID().String(), true
}
