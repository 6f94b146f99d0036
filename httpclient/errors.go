package httpclient

import (
	"errors"
	"fmt"
)

// Kind is the stable category of a failed request.
type Kind string

const (
	KindValidation          Kind = "Validation"
	KindUnauthorized        Kind = "Unauthorized"
	KindForbidden           Kind = "Forbidden"
	KindNotFound            Kind = "NotFound"
	KindConflict            Kind = "Conflict"
	KindUnprocessableEntity Kind = "UnprocessableEntity"
	KindRateLimited         Kind = "RateLimited"
	KindServerError         Kind = "ServerError"
	KindServiceUnavailable  Kind = "ServiceUnavailable"
	KindNetworkError        Kind = "NetworkError"
	KindTimeout             Kind = "Timeout"
	KindUnknown             Kind = "Unknown"
)

// Kinds lists every Kind a ClassifiedError can carry.
var Kinds = []Kind{
	KindValidation, KindUnauthorized, KindForbidden, KindNotFound, KindConflict,
	KindUnprocessableEntity, KindRateLimited, KindServerError, KindServiceUnavailable,
	KindNetworkError, KindTimeout, KindUnknown,
}

// ClassifiedError is the only error type returned by Client methods.
// Message is ready to show to an end user.
type ClassifiedError struct {
	Kind    Kind
	Message string
	// RetryAfter is the Retry-After header of a 429 response, verbatim.
	RetryAfter string
	// StatusCode is zero when no response was received.
	StatusCode int
	Method     string
	URL        string
	// Attempts is the number of transport attempts made, zero for requests rejected locally.
	Attempts int
	Body     []byte
	// Err is the underlying transport, context or interceptor error, if any.
	Err error
}

func (e *ClassifiedError) Error() string {
	var msg string
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s: %s (status: %d)", e.Kind, e.Message, e.StatusCode)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// AsClassified extracts the ClassifiedError from err.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsKind reports whether err is a ClassifiedError of the given kind.
func IsKind(err error, kind Kind) bool {
	ce, ok := AsClassified(err)
	return ok && ce.Kind == kind
}

// IsHTTPStatusError reports whether err is a ClassifiedError for the given response status.
func IsHTTPStatusError(err error, statusCode int) bool {
	ce, ok := AsClassified(err)
	return ok && ce.StatusCode == statusCode
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsRetryable reports whether a failure of this kind may succeed if the caller tries again later.
// The client itself has already exhausted its automatic retries when it returns such an error.
func (k Kind) IsRetryable() bool {
	switch k {
	case KindNetworkError, KindTimeout, KindServerError, KindServiceUnavailable, KindRateLimited:
		return true
	default:
		return false
	}
}
