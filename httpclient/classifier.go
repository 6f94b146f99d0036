package httpclient

import (
	"context"
	"errors"
	"mime"
	"net"
	nethttp "net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// DefaultErrorMessage is the Unknown message when neither the request nor the client sets one.
	DefaultErrorMessage = "an unexpected error occurred"

	msgNetworkError = "unable to reach the server, please check your connection"
	msgTimeout      = "the request took too long, please try again."
	msgCancelled    = "the request was cancelled"
)

type statusRule struct {
	kind    Kind
	message string
}

var statusTable = map[int]statusRule{
	nethttp.StatusBadRequest:          {KindValidation, "invalid data, please check the submitted information"},
	nethttp.StatusUnauthorized:        {KindUnauthorized, "session expired, please sign in again"},
	nethttp.StatusForbidden:           {KindForbidden, "you do not have permission to perform this action"},
	nethttp.StatusNotFound:            {KindNotFound, "resource not found"},
	nethttp.StatusConflict:            {KindConflict, "conflict: resource already exists or is in use"},
	nethttp.StatusUnprocessableEntity: {KindUnprocessableEntity, "validation error, please check the submitted data"},
	nethttp.StatusTooManyRequests:     {KindRateLimited, "too many requests, please wait before retrying"},
	nethttp.StatusInternalServerError: {KindServerError, "server error, please try again later"},
	nethttp.StatusServiceUnavailable:  {KindServiceUnavailable, "service temporarily unavailable"},
}

// messagePaths are searched in order for a server-supplied error message.
var messagePaths = []string{"message", "error", "error.message", "detail", "errors.0.message"}

// ClassifyStatus maps a non-success response to a ClassifiedError.
// It is total: every status yields exactly one kind. Any 5xx without its own
// rule is a ServerError; any other unlisted status is Unknown with fallback
// as the message.
func ClassifyStatus(status int, headers nethttp.Header, body []byte, fallback string) *ClassifiedError {
	rule, ok := statusTable[status]
	if !ok {
		if status >= 500 && status <= 599 {
			rule = statusTable[nethttp.StatusInternalServerError]
		} else {
			rule = statusRule{kind: KindUnknown, message: fallback}
		}
	}
	if rule.message == "" {
		rule.message = DefaultErrorMessage
	}

	ce := &ClassifiedError{
		Kind:       rule.kind,
		Message:    rule.message,
		StatusCode: status,
		Body:       body,
	}
	if msg := ServerMessage(headers, body); msg != "" {
		ce.Message = msg
	}
	if rule.kind == KindRateLimited {
		ce.RetryAfter = headers.Get("Retry-After")
	}
	return ce
}

// ServerMessage returns the error text a JSON error payload carries, or "".
func ServerMessage(headers nethttp.Header, body []byte) string {
	if len(body) == 0 || !isJSON(headers) || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range messagePaths {
		res := gjson.GetBytes(body, path)
		if res.Type == gjson.String {
			if msg := strings.TrimSpace(res.Str); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func isJSON(headers nethttp.Header) bool {
	ct := headers.Get("Content-Type")
	if ct == "" {
		// Unlabelled bodies are still inspected; ValidBytes rejects non-JSON.
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// transportOutcome is the classification of an attempt that produced no response.
type transportOutcome int

const (
	outcomeNetwork transportOutcome = iota
	outcomeTimeout
	outcomeCallerDeadline
	outcomeCallerCancelled
)

// classifyTransport decides why an attempt failed without a response.
// callerCtx is the caller's context; a failure caused by it is never retried.
func classifyTransport(callerCtx context.Context, err error) transportOutcome {
	switch {
	case errors.Is(callerCtx.Err(), context.DeadlineExceeded):
		return outcomeCallerDeadline
	case errors.Is(callerCtx.Err(), context.Canceled):
		return outcomeCallerCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcomeTimeout
	}
	return outcomeNetwork
}

func transportError(outcome transportOutcome, err error) *ClassifiedError {
	switch outcome {
	case outcomeTimeout, outcomeCallerDeadline:
		return &ClassifiedError{Kind: KindTimeout, Message: msgTimeout, Err: err}
	case outcomeCallerCancelled:
		return &ClassifiedError{Kind: KindUnknown, Message: msgCancelled, Err: err}
	default:
		return &ClassifiedError{Kind: KindNetworkError, Message: msgNetworkError, Err: err}
	}
}
