package httpclient

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/backoffice-client/logger"
)

const (
	testContentType        = "application/json"
	testContentTypeHeader  = "Content-Type"
	testRestClientRequest  = "REST client request"
	testRestClientResponse = "REST client response"
	testRestClientFailed   = "REST client request failed"
	testRestClientRetry    = "Retrying REST client request"
)

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{
		level:   e.level,
		fields:  maps.Clone(e.fields),
		message: msg,
	})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) {
	e.Msg(format)
}

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Uint64(key string, value uint64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent  { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent  { return l.event("warn") }

func (l *fakeLogger) WithContext(_ any) logger.Logger {
	return l
}

func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger {
	return l
}

func (l *fakeLogger) eventsByLevel(level string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var events []loggedEvent
	for _, event := range l.events {
		if event.level == level {
			events = append(events, event)
		}
	}
	return events
}

func (l *fakeLogger) eventsByMessage(msg string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var events []loggedEvent
	for _, event := range l.events {
		if event.message == msg {
			events = append(events, event)
		}
	}
	return events
}

func TestClientLogRequest(t *testing.T) {
	t.Run("basic request logging", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{
			logger: fakeLog,
			config: &Config{MaxPayloadLogBytes: 1024},
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://api.example.com/invoices", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer token")
		req.Header.Set(testContentTypeHeader, testContentType)

		body := []byte(`{"supplier": "fresh farms"}`)
		c.logRequest(req, body, "req-123", 0)

		debugEvents := fakeLog.eventsByLevel("debug")
		require.Len(t, debugEvents, 1)

		event := debugEvents[0]
		assert.Equal(t, testRestClientRequest, event.message)
		assert.Equal(t, "outbound", event.fields["direction"])
		assert.Equal(t, http.MethodPost, event.fields["method"])
		assert.Equal(t, "https://api.example.com/invoices", event.fields["url"])
		assert.Equal(t, "req-123", event.fields["request_id"])
		assert.Equal(t, 1, event.fields["attempt"])
		assert.Equal(t, 2, event.fields["header_count"])
		assert.Equal(t, len(body), event.fields["body_size"])
		_, hasHeaders := event.fields["headers"]
		assert.False(t, hasHeaders, "headers are only logged with payload logging")
	})

	t.Run("request with empty body", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{logger: fakeLog, config: &Config{}}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://api.example.com/items", http.NoBody)
		require.NoError(t, err)

		c.logRequest(req, nil, "req-456", 2)

		debugEvents := fakeLog.eventsByLevel("debug")
		require.Len(t, debugEvents, 1)
		event := debugEvents[0]
		assert.Equal(t, 3, event.fields["attempt"])
		_, hasBodySize := event.fields["body_size"]
		assert.False(t, hasBodySize)
		_, hasHeaderCount := event.fields["header_count"]
		assert.False(t, hasHeaderCount)
	})

	t.Run("request with payload logging enabled", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{
			logger: fakeLog,
			config: &Config{LogPayloads: true, MaxPayloadLogBytes: 50},
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPut, "https://api.example.com/recipes/9", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("X-Tenant", "bistro")

		body := []byte(`{"portion": 4}`)
		c.logRequest(req, body, "req-789", 0)

		debugEvents := fakeLog.eventsByLevel("debug")
		require.Len(t, debugEvents, 2)

		payload := debugEvents[1]
		assert.Equal(t, testRestClientRequest, payload.message)
		assert.Equal(t, "req-789", payload.fields["request_id"])
		assert.NotNil(t, payload.fields["headers"])
		assert.Equal(t, len(body), payload.fields["body_size"])
		assert.Equal(t, false, payload.fields["body_truncated"])
		assert.Equal(t, body, payload.fields["body_preview"])
	})

	t.Run("request with large body truncation", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{
			logger: fakeLog,
			config: &Config{LogPayloads: true, MaxPayloadLogBytes: 10},
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://api.example.com/upload", http.NoBody)
		require.NoError(t, err)

		largeBody := []byte("This is a very long body that should be truncated for logging purposes")
		c.logRequest(req, largeBody, "req-truncate", 0)

		payload := fakeLog.eventsByLevel("debug")[1]
		assert.Equal(t, len(largeBody), payload.fields["body_size"])
		assert.Equal(t, true, payload.fields["body_truncated"])
		assert.Equal(t, largeBody[:10], payload.fields["body_preview"])
	})

	t.Run("zero MaxPayloadLogBytes uses default", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{logger: fakeLog, config: &Config{LogPayloads: true}}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://api.example.com/test", http.NoBody)
		require.NoError(t, err)

		largeBody := make([]byte, 1500)
		for i := range largeBody {
			largeBody[i] = byte('A' + (i % 26))
		}
		c.logRequest(req, largeBody, "req-default", 0)

		payload := fakeLog.eventsByLevel("debug")[1]
		assert.Equal(t, true, payload.fields["body_truncated"])
		assert.Equal(t, largeBody[:DefaultMaxPayloadLogBytes], payload.fields["body_preview"])
	})
}

func TestClientLogResponse(t *testing.T) {
	t.Run("basic response logging", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{logger: fakeLog, config: &Config{MaxPayloadLogBytes: 1024}}

		response := &Response{
			StatusCode: 200,
			Body:       []byte(`[{"id": 1}]`),
			Headers:    http.Header{testContentTypeHeader: []string{testContentType}},
			Stats:      Stats{ElapsedTime: 250 * time.Millisecond, CallCount: 5, Attempts: 1},
		}

		c.logResponse(response, http.MethodGet, "https://api.example.com/items", "req-response")

		debugEvents := fakeLog.eventsByLevel("debug")
		require.Len(t, debugEvents, 1)

		event := debugEvents[0]
		assert.Equal(t, testRestClientResponse, event.message)
		assert.Equal(t, "inbound", event.fields["direction"])
		assert.Equal(t, http.MethodGet, event.fields["method"])
		assert.Equal(t, "https://api.example.com/items", event.fields["url"])
		assert.Equal(t, 200, event.fields["status"])
		assert.Equal(t, 250*time.Millisecond, event.fields["elapsed"])
		assert.Equal(t, int64(5), event.fields["call_count"])
		assert.Equal(t, "req-response", event.fields["request_id"])
		assert.Equal(t, len(response.Body), event.fields["body_size"])
		_, hasAttempts := event.fields["attempts"]
		assert.False(t, hasAttempts, "attempts only logged after retries")
	})

	t.Run("response after retries", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{logger: fakeLog, config: &Config{}}

		c.logResponse(&Response{StatusCode: 204, Stats: Stats{Attempts: 3}}, http.MethodDelete, "https://api.example.com/items/1", "req-retried")

		event := fakeLog.eventsByLevel("debug")[0]
		assert.Equal(t, 3, event.fields["attempts"])
		_, hasBodySize := event.fields["body_size"]
		assert.False(t, hasBodySize)
	})

	t.Run("response with payload logging enabled", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		c := &client{logger: fakeLog, config: &Config{LogPayloads: true, MaxPayloadLogBytes: 15}}

		body := []byte(`{"data": "this is a very long response that should be truncated"}`)
		response := &Response{
			StatusCode: 201,
			Body:       body,
			Headers:    http.Header{"X-Rate-Limit": []string{"100"}},
		}

		c.logResponse(response, http.MethodPost, "https://api.example.com/orders", "req-debug")

		debugEvents := fakeLog.eventsByLevel("debug")
		require.Len(t, debugEvents, 2)
		payload := debugEvents[1]
		assert.Equal(t, 201, payload.fields["status"])
		assert.NotNil(t, payload.fields["headers"])
		assert.Equal(t, true, payload.fields["body_truncated"])
		assert.Equal(t, body[:15], payload.fields["body_preview"])
	})
}
