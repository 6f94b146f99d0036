package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/backoffice-client/httpclient/internal/tracking"
	"github.com/gaborage/backoffice-client/logger"
	"github.com/gaborage/backoffice-client/session"
	"github.com/gaborage/backoffice-client/trace"
)

// client implements the Client interface
type client struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *Config
	session    *session.Store
	navigator  Navigator
	notifier   Notifier
	sleeper    Sleeper
	tracer     oteltrace.Tracer
	propagator propagation.TextMapPropagator
	metrics    *tracking.Metrics
	guard      *unauthorizedGuard
	callCount  int64
}

// attemptResult is what one transport attempt produced. transportErr is set
// when no complete response was received.
type attemptResult struct {
	status       int
	headers      nethttp.Header
	body         []byte
	generation   uint64
	transportErr error
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs an HTTP request with the specified method. It blocks until the
// request reaches a terminal outcome, waiting out any retry delays.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	ctx, requestID := trace.EnsureRequestID(ctx)
	method = strings.ToUpper(strings.TrimSpace(method))

	target, err := c.validateRequest(method, req)
	if err != nil {
		ce := &ClassifiedError{Kind: KindValidation, Message: err.Error(), Method: method, Err: err}
		return nil, c.fail(ctx, ce, requestID, start)
	}

	ctx, span := c.tracer.Start(ctx, method,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
			attribute.String("http.request.id", requestID),
		),
	)
	defer span.End()

	state := newRetryState(c.config.Retry, c.config.Retry.retryable(method, req))

	for {
		state.dispatched()

		if ctxErr := ctx.Err(); ctxErr != nil {
			ce := transportError(classifyTransport(ctx, ctxErr), ctxErr)
			return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)
		}

		res, interceptErr := c.attempt(ctx, method, target, req, requestID, state.Attempt)
		if interceptErr != nil {
			ce := &ClassifiedError{Kind: KindUnknown, Message: c.unknownMessage(req), Err: interceptErr}
			return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)
		}

		if res.transportErr != nil {
			outcome := classifyTransport(ctx, res.transportErr)
			if outcome == outcomeNetwork {
				retried, sleepErr := c.backoff(ctx, span, state, method, target, requestID, "network", 0)
				if sleepErr != nil {
					ce := transportError(classifyTransport(ctx, sleepErr), sleepErr)
					return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)
				}
				if retried {
					continue
				}
			}
			ce := transportError(outcome, res.transportErr)
			return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)
		}

		switch {
		case res.status < 400:
			return c.succeed(ctx, span, res, method, target, state, requestID, callCount, start), nil

		case res.status == nethttp.StatusUnauthorized:
			c.handleUnauthorized(ctx, res.generation)
			ce := ClassifyStatus(res.status, res.headers, res.body, c.unknownMessage(req))
			return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)

		case res.status == nethttp.StatusTooManyRequests:
			ce := ClassifyStatus(res.status, res.headers, res.body, c.unknownMessage(req))
			return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)

		case res.status >= 500 && res.status <= 599:
			retried, sleepErr := c.backoff(ctx, span, state, method, target, requestID, "server", res.status)
			if sleepErr != nil {
				ce := transportError(classifyTransport(ctx, sleepErr), sleepErr)
				return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)
			}
			if retried {
				continue
			}
			ce := ClassifyStatus(res.status, res.headers, res.body, c.unknownMessage(req))
			return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)

		default:
			ce := ClassifyStatus(res.status, res.headers, res.body, c.unknownMessage(req))
			return nil, c.failRequest(ctx, span, ce, method, target, state, requestID, start)
		}
	}
}

// attempt performs one dispatch under its own timeout. A non-nil error means
// an interceptor or the request builder rejected the call.
func (c *client) attempt(ctx context.Context, method, target string, req *Request, requestID string, attempt int) (*attemptResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, generation, err := c.buildRequest(attemptCtx, method, target, req, requestID)
	if err != nil {
		return nil, err
	}

	c.logRequest(httpReq, req.Body, requestID, attempt)
	logger.IncrementHTTPCounter(ctx)
	c.metrics.RecordAttempt(ctx, method)

	begin := time.Now()
	defer func() { logger.AddHTTPElapsed(ctx, time.Since(begin).Nanoseconds()) }()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &attemptResult{generation: generation, transportErr: err}, nil
	}
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(attemptCtx, httpReq, httpResp); err != nil {
		return nil, fmt.Errorf("response interceptor failed: %w", err)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &attemptResult{generation: generation, transportErr: err}, nil
	}

	return &attemptResult{
		status:     httpResp.StatusCode,
		headers:    httpResp.Header,
		body:       body,
		generation: generation,
	}, nil
}

// backoff schedules the next attempt if the retry state allows it and waits
// out the delay. A non-nil error means the wait was interrupted by ctx.
func (c *client) backoff(ctx context.Context, span oteltrace.Span, state *RetryState, method, target, requestID, reason string, status int) (bool, error) {
	delay, ok := state.next()
	if !ok {
		return false, nil
	}

	event := c.logger.Warn().
		Str("method", method).
		Str("url", target).
		Str("request_id", requestID).
		Str("reason", reason).
		Int("attempt", state.Attempt+1).
		Dur("delay", delay)
	if status > 0 {
		event = event.Int("status", status)
	}
	event.Msg("Retrying REST client request")

	span.AddEvent("retry", oteltrace.WithAttributes(
		attribute.String("retry.reason", reason),
		attribute.Int("retry.attempt", state.Attempt+1),
		attribute.Int64("retry.delay_ms", delay.Milliseconds()),
	))
	c.metrics.RecordRetry(ctx, method, reason)

	if err := c.sleeper(ctx, delay); err != nil {
		return false, err
	}
	return true, nil
}

func (c *client) succeed(ctx context.Context, span oteltrace.Span, res *attemptResult, method, target string, state *RetryState, requestID string, callCount int64, start time.Time) *Response {
	resp := &Response{
		StatusCode: res.status,
		Body:       res.body,
		Headers:    res.headers,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
			Attempts:    state.Attempts(),
		},
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", res.status),
		attribute.Int("http.request.resend_count", state.Attempt),
	)
	c.metrics.RecordRequest(ctx, method, res.status, "", resp.Stats.ElapsedTime)
	c.logResponse(resp, method, target, requestID)
	return resp
}

// failRequest completes a dispatched request with ce.
func (c *client) failRequest(ctx context.Context, span oteltrace.Span, ce *ClassifiedError, method, target string, state *RetryState, requestID string, start time.Time) *ClassifiedError {
	ce.Method = method
	ce.URL = target
	ce.Attempts = state.Attempts()

	span.SetAttributes(
		attribute.String("error.type", string(ce.Kind)),
		attribute.Int("http.request.resend_count", state.Attempt),
	)
	if ce.StatusCode > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", ce.StatusCode))
	}
	span.SetStatus(codes.Error, ce.Message)
	if ce.Err != nil {
		span.RecordError(ce.Err)
	}

	return c.fail(ctx, ce, requestID, start)
}

// fail logs, records and reports a terminal failure exactly once.
func (c *client) fail(ctx context.Context, ce *ClassifiedError, requestID string, start time.Time) *ClassifiedError {
	elapsed := time.Since(start)
	c.metrics.RecordRequest(ctx, ce.Method, ce.StatusCode, string(ce.Kind), elapsed)

	event := c.logger.Warn().
		Str("direction", "inbound").
		Str("kind", string(ce.Kind)).
		Str("method", ce.Method).
		Str("url", ce.URL).
		Str("request_id", requestID).
		Int("attempts", ce.Attempts).
		Dur("elapsed", elapsed)
	if ce.StatusCode > 0 {
		event = event.Int("status", ce.StatusCode)
	}
	if ce.Err != nil {
		event = event.Err(ce.Err)
	}
	event.Msg("REST client request failed")

	if c.notifier != nil {
		c.notifier.Notify(ctx, ce)
	}
	return ce
}

// handleUnauthorized clears the session the request was sent with and sends
// the user to login at most once per session generation.
func (c *client) handleUnauthorized(ctx context.Context, generation uint64) {
	if c.session != nil {
		c.session.Invalidate(ctx, generation)
		if c.session.Generation() != generation {
			// A newer login happened while this request was in flight.
			return
		}
	}

	if !c.guard.claim(generation) {
		return
	}
	c.metrics.RecordUnauthorized(ctx)

	if c.navigator == nil || c.navigator.AtLogin() {
		return
	}
	c.logger.Info().Uint64("generation", generation).Msg("Redirecting to login after unauthorized response")
	c.navigator.NavigateToLogin(ctx)
}

func (c *client) unknownMessage(req *Request) string {
	if req != nil && req.DefaultErrorMessage != "" {
		return req.DefaultErrorMessage
	}
	if c.config.DefaultErrorMessage != "" {
		return c.config.DefaultErrorMessage
	}
	return DefaultErrorMessage
}

// validateRequest validates the request before sending and resolves its URL.
func (c *client) validateRequest(method string, req *Request) (string, error) {
	if req == nil {
		return "", errors.New("request cannot be nil")
	}
	if method == "" {
		return "", errors.New("request method cannot be empty")
	}
	if strings.TrimSpace(req.Path) == "" {
		return "", errors.New("request path cannot be empty")
	}
	return c.resolveURL(req)
}

func (c *client) resolveURL(req *Request) (string, error) {
	raw := req.Path
	if !isAbsoluteURL(raw) {
		raw = joinURL(c.config.BaseURL, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid request URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("request URL %q is not absolute, configure a base URL", raw)
	}

	if len(req.Query) > 0 {
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isAbsoluteURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// buildRequest constructs an *http.Request, applies the built-in request
// steps and runs request interceptors. It returns the session generation the
// attached token belongs to.
func (c *client) buildRequest(ctx context.Context, method, target string, req *Request, requestID string) (*nethttp.Request, uint64, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	c.applyHeaders(httpReq, req)
	generation := c.applyAuth(ctx, httpReq)

	if httpReq.Header.Get(trace.HeaderXRequestID) == "" {
		httpReq.Header.Set(trace.HeaderXRequestID, requestID)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(HeaderIdempotencyKey, req.IdempotencyKey)
	}

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, generation, fmt.Errorf("request interceptor failed: %w", err)
	}
	return httpReq, generation, nil
}

// applyHeaders applies headers to the HTTP request
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	httpReq.Header.Set(HeaderContentType, contentTypeJSON)
	httpReq.Header.Set(HeaderAccept, contentTypeJSON)

	// Apply default headers first
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	// Apply request-specific headers (these override defaults)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
}

// applyAuth attaches the session token unless the caller supplied its own
// Authorization header.
func (c *client) applyAuth(ctx context.Context, httpReq *nethttp.Request) uint64 {
	if c.session == nil {
		return 0
	}
	token, generation := c.session.Token(ctx)
	if token != "" && httpReq.Header.Get(HeaderAuthorization) == "" {
		httpReq.Header.Set(HeaderAuthorization, "Bearer "+token)
	}
	return generation
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}
