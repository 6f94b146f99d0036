package trace

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func TestWithRequestID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		want   string
		wantOK bool
	}{
		{"plain", "req-123", "req-123", true},
		{"trimmed", "  req-456 ", "req-456", true},
		{"blank", "   ", "", false},
		{"header injection", "abc\r\nX-Evil: 1", "", false},
		{"oversized", strings.Repeat("a", maxRequestIDLength+1), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithRequestID(context.Background(), tt.id)
			got, ok := RequestIDFromContext(ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnsureRequestID(t *testing.T) {
	t.Run("keeps existing id", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "existing")
		newCtx, id := EnsureRequestID(ctx)
		assert.Equal(t, "existing", id)
		assert.Equal(t, ctx, newCtx)
	})

	t.Run("generates a uuid once", func(t *testing.T) {
		ctx, id := EnsureRequestID(context.Background())
		_, err := uuid.Parse(id)
		require.NoError(t, err)

		_, again := EnsureRequestID(ctx)
		assert.Equal(t, id, again, "subsequent calls reuse the stored id")
	})
}

func TestTraceIDFromContext(t *testing.T) {
	_, ok := TraceIDFromContext(context.Background())
	assert.False(t, ok)

	traceID, err := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	got, ok := TraceIDFromContext(oteltrace.ContextWithSpanContext(context.Background(), sc))
	require.True(t, ok)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got)
}
