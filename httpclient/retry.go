package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultMaxAttempts is the number of automatic retries after the first attempt.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first retry delay; each further retry doubles it.
	DefaultBaseDelay = 1 * time.Second
)

// RetryPolicy configures automatic retries of network failures and 5xx responses.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first attempt. Zero disables retries.
	MaxAttempts int
	BaseDelay   time.Duration
	// RetryNonIdempotent also retries POST and PATCH requests without an idempotency key.
	RetryNonIdempotent bool
}

// DefaultRetryPolicy returns 3 retries at 1s, 2s and 4s for idempotent requests.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryState is the retry bookkeeping of one logical request. It is created
// when the request is dispatched and dropped at its terminal outcome.
type RetryState struct {
	Attempt     int
	MaxAttempts int
	BaseDelay   time.Duration
	// Idempotent reports whether the request may be re-sent automatically.
	Idempotent bool

	pending bool
	backoff retry.Backoff
}

func newRetryState(policy RetryPolicy, idempotent bool) *RetryState {
	maxAttempts := max(policy.MaxAttempts, 0)
	base := policy.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	return &RetryState{
		MaxAttempts: maxAttempts,
		BaseDelay:   base,
		Idempotent:  idempotent,
		backoff:     retry.WithMaxRetries(uint64(maxAttempts), retry.NewExponential(base)),
	}
}

// CanRetry reports whether another attempt may be scheduled.
func (s *RetryState) CanRetry() bool {
	return s.Idempotent && !s.pending && s.Attempt < s.MaxAttempts
}

// next schedules a retry and returns its delay: BaseDelay × 2^Attempt.
func (s *RetryState) next() (time.Duration, bool) {
	if !s.CanRetry() {
		return 0, false
	}
	delay, stop := s.backoff.Next()
	if stop {
		return 0, false
	}
	s.pending = true
	return delay, true
}

// dispatched marks the start of a retry attempt.
func (s *RetryState) dispatched() {
	if s.pending {
		s.pending = false
		s.Attempt++
	}
}

// Attempts returns the number of transport attempts made so far.
func (s *RetryState) Attempts() int {
	return s.Attempt + 1
}

var idempotentMethods = map[string]bool{
	nethttp.MethodGet:     true,
	nethttp.MethodHead:    true,
	nethttp.MethodOptions: true,
	nethttp.MethodPut:     true,
	nethttp.MethodDelete:  true,
}

// retryable reports whether a request may be re-sent automatically.
func (p RetryPolicy) retryable(method string, req *Request) bool {
	return idempotentMethods[method] || req.IdempotencyKey != "" || p.RetryNonIdempotent
}
