package httpclient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *ClassifiedError
		expected string
	}{
		{
			name:     "status error",
			err:      &ClassifiedError{Kind: KindNotFound, Message: "resource not found", StatusCode: 404},
			expected: "NotFound: resource not found (status: 404)",
		},
		{
			name:     "transport error",
			err:      &ClassifiedError{Kind: KindNetworkError, Message: msgNetworkError, Err: errors.New("connection refused")},
			expected: "NetworkError: " + msgNetworkError + ": connection refused",
		},
		{
			name:     "message only",
			err:      &ClassifiedError{Kind: KindValidation, Message: "request path cannot be empty"},
			expected: "Validation: request path cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	ce := &ClassifiedError{Kind: KindNetworkError, Message: msgNetworkError, Err: cause}

	assert.ErrorIs(t, ce, cause)
	assert.Nil(t, (&ClassifiedError{Kind: KindUnknown}).Unwrap())
}

func TestAsClassified(t *testing.T) {
	ce := &ClassifiedError{Kind: KindConflict, StatusCode: 409}
	wrapped := fmt.Errorf("create supplier: %w", ce)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Same(t, ce, got)

	_, ok = AsClassified(errors.New("plain"))
	assert.False(t, ok)

	assert.True(t, IsKind(wrapped, KindConflict))
	assert.False(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(nil, KindConflict))

	assert.True(t, IsHTTPStatusError(wrapped, 409))
	assert.False(t, IsHTTPStatusError(wrapped, 404))
}

func TestIsSuccessStatus(t *testing.T) {
	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(204))
	assert.False(t, IsSuccessStatus(301))
	assert.False(t, IsSuccessStatus(404))
	assert.False(t, IsSuccessStatus(500))
}

func TestKindIsRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindNetworkError:       true,
		KindTimeout:            true,
		KindServerError:        true,
		KindServiceUnavailable: true,
		KindRateLimited:        true,
	}
	require.Len(t, Kinds, 12)
	for _, k := range Kinds {
		assert.Equal(t, retryable[k], k.IsRetryable(), "kind %s", k)
	}
}
