// Package fakeapi provides a scripted REST server for exercising the client
// against real HTTP round trips. Replies are queued per route and served in
// order; the last reply of a route repeats once the queue is drained.
package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "fakeapi"

// Reply is one scripted response.
type Reply struct {
	Status int
	// Body is sent as application/json unless Headers sets a Content-Type.
	Body    string
	Headers map[string]string
	// Delay holds the reply back; the wait ends early if the client goes away.
	Delay time.Duration
	// Drop closes the connection without writing a response.
	Drop bool
}

// JSON builds a reply with v encoded as the body.
func JSON(status int, v any) Reply {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Reply{Status: status, Body: string(data), Headers: map[string]string{echo.HeaderContentType: echo.MIMEApplicationJSON}}
}

// Status builds a bodiless reply.
func Status(status int) Reply {
	return Reply{Status: status}
}

// Recorded is a request as the server received it.
type Recorded struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
}

// Option configures a Server.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
}

// WithTracing installs otelecho so the server continues the client's trace.
func WithTracing(tp trace.TracerProvider, p propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.tracerProvider = tp
		o.propagator = p
	}
}

// Server is a scripted REST API backed by echo.
type Server struct {
	echo *echo.Echo
	ts   *httptest.Server

	mu       sync.Mutex
	scripts  map[string][]Reply
	recorded []Recorded
}

// New starts a server that is closed when t finishes.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if o.tracerProvider != nil {
		mwOpts := []otelecho.Option{otelecho.WithTracerProvider(o.tracerProvider)}
		if o.propagator != nil {
			mwOpts = append(mwOpts, otelecho.WithPropagators(o.propagator))
		}
		e.Use(otelecho.Middleware(serviceName, mwOpts...))
	}

	s := &Server{echo: e, scripts: make(map[string][]Reply)}
	e.Any("/*", s.handle)

	s.ts = httptest.NewServer(e)
	t.Cleanup(s.Close)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.ts.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.ts.Close()
}

// Script queues replies for method and path, replacing any earlier script.
func (s *Server) Script(method, path string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[routeKey(method, path)] = replies
}

// Requests returns every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.recorded))
	copy(out, s.recorded)
	return out
}

// Count returns how many requests hit method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recorded {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) handle(c echo.Context) error {
	req := c.Request()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}

	reply, ok := s.next(Recorded{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.RawQuery,
		Headers: req.Header.Clone(),
		Body:    body,
	})
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "no scripted reply for " + req.Method + " " + req.URL.Path})
	}

	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
			return nil
		case <-timer.C:
		}
	}

	if reply.Drop {
		conn, _, err := c.Response().Hijack()
		if err != nil {
			return err
		}
		return conn.Close()
	}

	for k, v := range reply.Headers {
		c.Response().Header().Set(k, v)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if reply.Body == "" {
		return c.NoContent(status)
	}
	return c.Blob(status, echo.MIMEApplicationJSON, []byte(reply.Body))
}

// next records r and pops the reply for its route.
func (s *Server) next(r Recorded) (Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, r)

	key := routeKey(r.Method, r.Path)
	queue := s.scripts[key]
	if len(queue) == 0 {
		return Reply{}, false
	}
	reply := queue[0]
	if len(queue) > 1 {
		s.scripts[key] = queue[1:]
	}
	return reply, true
}

func routeKey(method, path string) string {
	return method + " " + path
}
