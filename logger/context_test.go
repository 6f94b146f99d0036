package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testContextKey string

func TestWithHTTPCounter(t *testing.T) {
	existingKey := testContextKey("existing_key")

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{
			name: "with_background_context",
			ctx:  context.Background(),
		},
		{
			name: "with_existing_context_values",
			ctx:  context.WithValue(context.Background(), existingKey, "existing_value"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithHTTPCounter(tt.ctx)

			assert.Equal(t, int64(0), GetHTTPCounter(ctx))
			assert.Equal(t, int64(0), GetHTTPElapsed(ctx))

			if tt.name == "with_existing_context_values" {
				assert.Equal(t, "existing_value", ctx.Value(existingKey))
			}
		})
	}
}

func TestHTTPCounterOperations(t *testing.T) {
	ctx := WithHTTPCounter(context.Background())

	IncrementHTTPCounter(ctx)
	IncrementHTTPCounter(ctx)
	AddHTTPElapsed(ctx, 1500)
	AddHTTPElapsed(ctx, 500)

	assert.Equal(t, int64(2), GetHTTPCounter(ctx))
	assert.Equal(t, int64(2000), GetHTTPElapsed(ctx))
}

func TestHTTPCounterWithoutTracker(t *testing.T) {
	ctx := context.Background()

	// No-ops without panicking
	IncrementHTTPCounter(ctx)
	AddHTTPElapsed(ctx, 100)

	assert.Equal(t, int64(0), GetHTTPCounter(ctx))
	assert.Equal(t, int64(0), GetHTTPElapsed(ctx))
}

func TestHTTPCounterConcurrency(t *testing.T) {
	ctx := WithHTTPCounter(context.Background())

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			IncrementHTTPCounter(ctx)
			AddHTTPElapsed(ctx, 10)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines), GetHTTPCounter(ctx))
	assert.Equal(t, int64(goroutines*10), GetHTTPElapsed(ctx))
}
