package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout bounds every attempt, measured from dispatch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPayloadLogBytes caps logged body previews when payload logging is on.
	DefaultMaxPayloadLogBytes = 1024

	HeaderContentType    = "Content-Type"
	HeaderAccept         = "Accept"
	HeaderAuthorization  = "Authorization"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRetryAfter     = "Retry-After"

	contentTypeJSON = "application/json"
)

// Client defines the REST client interface for making HTTP requests.
// Every non-nil error it returns is a *ClassifiedError.
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request describes one logical call. The client never modifies it.
type Request struct {
	// Path is joined onto the base URL. An absolute http(s) URL is used as is.
	Path  string
	Query url.Values
	// Headers override the client's default headers.
	Headers map[string]string
	Body    []byte
	// IdempotencyKey is sent as Idempotency-Key and allows retrying POST and PATCH.
	IdempotencyKey string
	// DefaultErrorMessage replaces the client's message for Unknown failures.
	DefaultErrorMessage string
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	// ElapsedTime spans the whole logical request, backoff delays included.
	ElapsedTime time.Duration
	// CallCount is the client-wide sequence number of this logical request.
	CallCount int64
	// Attempts is the number of transport attempts, retries included.
	Attempts int
}

// ErrEmptyBody is returned by Response.Decode for responses without a body.
var ErrEmptyBody = errors.New("httpclient: empty response body")

// Decode unmarshals the JSON payload into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(r.Body, v)
}

// RequestInterceptor is called before each attempt, after the built-in headers are set.
// An error aborts the request without retry.
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after each attempt that received a response.
// An error aborts the request without retry.
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	BaseURL              string
	Timeout              time.Duration
	Retry                RetryPolicy
	DefaultErrorMessage  string
	DefaultHeaders       map[string]string
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
}
