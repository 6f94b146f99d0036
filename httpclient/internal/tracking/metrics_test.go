package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	obtest "github.com/gaborage/backoffice-client/observability/testing"
)

func TestMetricsRecording(t *testing.T) {
	mp := obtest.NewTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m := New(mp)
	ctx := context.Background()

	m.RecordAttempt(ctx, "GET")
	m.RecordAttempt(ctx, "GET")
	m.RecordAttempt(ctx, "GET")
	m.RecordRetry(ctx, "GET", "server")
	m.RecordRetry(ctx, "GET", "server")
	m.RecordRequest(ctx, "GET", 200, "", 3*time.Second)
	m.RecordRequest(ctx, "POST", 503, "ServiceUnavailable", time.Second)
	m.RecordUnauthorized(ctx)

	rm := mp.Collect(t)

	attempts, err := obtest.GetMetricSumValue(rm, metricAttempts)
	require.NoError(t, err)
	assert.Equal(t, int64(3), attempts)

	retries, err := obtest.GetMetricSumValue(rm, metricRetries, attribute.String(attrReason, "server"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), retries)

	failures, err := obtest.GetMetricSumValue(rm, metricFailures, attribute.String(attrErrorType, "ServiceUnavailable"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), failures)

	count, err := obtest.GetMetricHistogramCount(rm, metricRequestDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	unauthorized, err := obtest.GetMetricSumValue(rm, metricUnauthorized)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unauthorized)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordAttempt(ctx, "GET")
		m.RecordRetry(ctx, "GET", "network")
		m.RecordRequest(ctx, "GET", 0, "NetworkError", time.Millisecond)
		m.RecordUnauthorized(ctx)
	})
}

func TestNewUsesGlobalProvider(t *testing.T) {
	assert.NotNil(t, New(nil))
}
