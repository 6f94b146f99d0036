// Package tracking records OpenTelemetry metrics for the REST client.
package tracking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Meter name for REST client instrumentation
	meterName = "backoffice-client/httpclient"

	// Metric names following OpenTelemetry semantic conventions
	metricRequestDuration = "http.client.request.duration" // Histogram in seconds, per logical request
	metricAttempts        = "http.client.attempts"         // Counter, one per transport attempt
	metricRetries         = "http.client.retries"          // Counter, one per scheduled retry
	metricFailures        = "http.client.failures"         // Counter, one per terminal failure
	metricUnauthorized    = "http.client.unauthorized"     // Counter, one per claimed 401 episode

	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrErrorType  = "error.type"
	attrReason     = "retry.reason"
)

// Metrics holds the client's instruments. A nil *Metrics records nothing.
type Metrics struct {
	requestDuration metric.Float64Histogram
	attempts        metric.Int64Counter
	retries         metric.Int64Counter
	failures        metric.Int64Counter
	unauthorized    metric.Int64Counter
}

// New creates the instruments on mp, or on the global meter provider when mp is nil.
// Instrument creation errors are reported through otel.Handle and leave that
// instrument unset.
func New(mp metric.MeterProvider) *Metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}

	var err error
	m.requestDuration, err = meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of logical REST requests including retries"),
		metric.WithUnit("s"),
	)
	handleErr(err)

	m.attempts, err = meter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Number of transport attempts"),
		metric.WithUnit("{attempt}"),
	)
	handleErr(err)

	m.retries, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of automatic retries scheduled"),
		metric.WithUnit("{retry}"),
	)
	handleErr(err)

	m.failures, err = meter.Int64Counter(
		metricFailures,
		metric.WithDescription("Number of requests that ended in a classified error"),
		metric.WithUnit("{request}"),
	)
	handleErr(err)

	m.unauthorized, err = meter.Int64Counter(
		metricUnauthorized,
		metric.WithDescription("Number of unauthorized episodes that triggered navigation to login"),
		metric.WithUnit("{episode}"),
	)
	handleErr(err)

	return m
}

func handleErr(err error) {
	if err != nil {
		otel.Handle(err)
	}
}

// RecordAttempt counts one transport attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, method string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMethod, method)))
}

// RecordRetry counts a scheduled retry; reason is "network" or "server".
func (m *Metrics) RecordRetry(ctx context.Context, method, reason string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrReason, reason),
	))
}

// RecordRequest records the outcome of a logical request. kind is empty on success.
func (m *Metrics) RecordRequest(ctx context.Context, method string, status int, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrMethod, method)}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(attrErrorType, kind))
	}
	opt := metric.WithAttributes(attrs...)

	if m.requestDuration != nil {
		m.requestDuration.Record(ctx, elapsed.Seconds(), opt)
	}
	if kind != "" && m.failures != nil {
		m.failures.Add(ctx, 1, opt)
	}
}

// RecordUnauthorized counts an unauthorized episode that was handled.
func (m *Metrics) RecordUnauthorized(ctx context.Context) {
	if m == nil || m.unauthorized == nil {
		return
	}
	m.unauthorized.Add(ctx, 1)
}
