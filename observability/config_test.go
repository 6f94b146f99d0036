package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{Enabled: true, Service: ServiceConfig{Name: "backoffice"}}
	cfg.ApplyDefaults()

	assert.Equal(t, "unknown", cfg.Service.Version)
	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	require.NotNil(t, cfg.Trace.Enabled)
	assert.True(t, *cfg.Trace.Enabled)
	require.NotNil(t, cfg.Trace.SampleRate)
	assert.InDelta(t, 1.0, *cfg.Trace.SampleRate, 0)
	assert.Equal(t, EndpointStdout, cfg.Trace.Exporter.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Trace.Exporter.Protocol)
	assert.Equal(t, defaultMetricsInterval, cfg.Metrics.Interval)
	assert.Equal(t, EndpointStdout, cfg.Metrics.Exporter.Endpoint)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	headers := map[string]string{"api-key": "k"}
	cfg := &Config{
		Enabled: true,
		Service: ServiceConfig{Name: "backoffice", Version: "1.2.3"},
		Trace: TraceConfig{
			Enabled:    BoolPtr(false),
			SampleRate: Float64Ptr(0),
			Exporter:   ExporterConfig{Endpoint: "collector:4317", Protocol: "GRPC", Headers: headers},
		},
		Metrics: MetricsConfig{Interval: 5 * time.Second},
	}
	cfg.ApplyDefaults()

	assert.False(t, *cfg.Trace.Enabled)
	assert.InDelta(t, 0.0, *cfg.Trace.SampleRate, 0)
	assert.Equal(t, ProtocolGRPC, cfg.Trace.Exporter.Protocol)
	assert.Equal(t, "collector:4317", cfg.Metrics.Exporter.Endpoint, "metrics follow the trace exporter")
	assert.Equal(t, 5*time.Second, cfg.Metrics.Interval)

	headers["api-key"] = "changed"
	assert.Equal(t, "k", cfg.Trace.Exporter.Headers["api-key"])
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{Enabled: true, Service: ServiceConfig{Name: "backoffice"}}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid stdout", func(*Config) {}, nil},
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Service.Name = "" }, nil},
		{"missing service name", func(c *Config) { c.Service.Name = " " }, ErrMissingServiceName},
		{"sample rate too high", func(c *Config) { c.Trace.SampleRate = Float64Ptr(1.5) }, ErrInvalidSampleRate},
		{"bad protocol", func(c *Config) {
			c.Trace.Exporter = ExporterConfig{Endpoint: "collector:4318", Protocol: "udp"}
		}, ErrInvalidProtocol},
		{"endpoint with scheme", func(c *Config) {
			c.Metrics.Exporter = ExporterConfig{Endpoint: "http://collector:4318", Protocol: ProtocolHTTP}
		}, ErrInvalidEndpointFormat},
		{"missing endpoint", func(c *Config) { c.Metrics.Exporter.Endpoint = "" }, ErrMissingEndpoint},
		{"disabled signal skips exporter checks", func(c *Config) {
			c.Metrics.Enabled = BoolPtr(false)
			c.Metrics.Exporter.Endpoint = ""
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
}
