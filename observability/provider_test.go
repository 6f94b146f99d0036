package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(&Config{Enabled: false})
	require.NoError(t, err)

	_, ok := p.(*noopProvider)
	assert.True(t, ok)
	assert.NotNil(t, p.TracerProvider())
	assert.NotNil(t, p.MeterProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderNilConfig(t *testing.T) {
	_, err := NewProvider(nil)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewProviderInvalidConfig(t *testing.T) {
	_, err := NewProvider(&Config{Enabled: true})
	assert.ErrorIs(t, err, ErrMissingServiceName)
}

func TestNewProviderStdout(t *testing.T) {
	restoreGlobals(t)

	p, err := NewProvider(&Config{Enabled: true, Service: ServiceConfig{Name: "backoffice"}})
	require.NoError(t, err)

	_, isSDKTracer := p.TracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, isSDKTracer)
	_, isSDKMeter := p.MeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, isSDKMeter)
	assert.Same(t, p.TracerProvider(), otel.GetTracerProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()), "shutdown is idempotent")
}

func TestNewProviderOTLPExporters(t *testing.T) {
	for _, protocol := range []string{ProtocolHTTP, ProtocolGRPC} {
		t.Run(protocol, func(t *testing.T) {
			restoreGlobals(t)

			p, err := NewProvider(&Config{
				Enabled: true,
				Service: ServiceConfig{Name: "backoffice"},
				Trace: TraceConfig{
					Exporter: ExporterConfig{Endpoint: "127.0.0.1:4999", Protocol: protocol, Insecure: true},
				},
				Metrics: MetricsConfig{Enabled: BoolPtr(false)},
			})
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			// Nothing is listening; a cancelled context keeps shutdown from waiting on export.
			_ = p.Shutdown(ctx)
		})
	}
}
