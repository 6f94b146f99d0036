package observability

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name for development mode.
	EnvironmentDevelopment = "development"

	defaultMetricsInterval = 30 * time.Second
)

// BoolPtr returns a pointer to the provided bool value.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

func cloneHeaderMap(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	clone := make(map[string]string, len(headers))
	maps.Copy(clone, headers)
	return clone
}

// Config defines the configuration for the client's telemetry.
// It is unmarshaled from the "observability" section of the application config.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled"`

	Service     ServiceConfig `koanf:"service"`
	Environment string        `koanf:"environment"`

	Trace   TraceConfig   `koanf:"trace"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServiceConfig identifies the client in exported telemetry.
type ServiceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// ExporterConfig describes where a signal is shipped.
type ExporterConfig struct {
	// Endpoint is "stdout" or an OTLP collector address in "host:port" form.
	Endpoint string            `koanf:"endpoint"`
	Protocol string            `koanf:"protocol"`
	Insecure bool              `koanf:"insecure"`
	Headers  map[string]string `koanf:"headers"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	// Enabled defaults to true when observability is enabled.
	Enabled  *bool          `koanf:"enabled"`
	Exporter ExporterConfig `koanf:"exporter"`

	// SampleRate is the ratio of traces kept, defaults to 1.0.
	SampleRate *float64 `koanf:"samplerate"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Enabled defaults to true when observability is enabled.
	Enabled  *bool          `koanf:"enabled"`
	Exporter ExporterConfig `koanf:"exporter"`
	Interval time.Duration  `koanf:"interval"`
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(1.0)
	}
	applyExporterDefaults(&c.Trace.Exporter)
	c.Trace.Exporter.Headers = cloneHeaderMap(c.Trace.Exporter.Headers)

	if c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = defaultMetricsInterval
	}
	// Metrics follow the trace exporter unless configured separately.
	if c.Metrics.Exporter.Endpoint == "" {
		c.Metrics.Exporter = c.Trace.Exporter
	}
	applyExporterDefaults(&c.Metrics.Exporter)
	c.Metrics.Exporter.Headers = cloneHeaderMap(c.Metrics.Exporter.Headers)
}

func applyExporterDefaults(e *ExporterConfig) {
	if e.Endpoint == "" {
		e.Endpoint = EndpointStdout
	}
	if e.Protocol == "" {
		e.Protocol = ProtocolHTTP
	}
	e.Protocol = strings.ToLower(e.Protocol)
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Service.Name) == "" {
		return ErrMissingServiceName
	}

	if c.TraceEnabled() {
		if c.Trace.SampleRate != nil && (*c.Trace.SampleRate < 0 || *c.Trace.SampleRate > 1) {
			return fmt.Errorf("%w: got %v", ErrInvalidSampleRate, *c.Trace.SampleRate)
		}
		if err := validateExporter("trace", c.Trace.Exporter); err != nil {
			return err
		}
	}
	if c.MetricsEnabled() {
		if err := validateExporter("metrics", c.Metrics.Exporter); err != nil {
			return err
		}
	}
	return nil
}

// TraceEnabled reports whether spans are exported.
func (c *Config) TraceEnabled() bool {
	return c.Enabled && c.Trace.Enabled != nil && *c.Trace.Enabled
}

// MetricsEnabled reports whether metrics are exported.
func (c *Config) MetricsEnabled() bool {
	return c.Enabled && c.Metrics.Enabled != nil && *c.Metrics.Enabled
}

func validateExporter(signal string, e ExporterConfig) error {
	if e.Endpoint == "" {
		return fmt.Errorf("%s: %w", signal, ErrMissingEndpoint)
	}
	if e.Endpoint == EndpointStdout {
		return nil
	}
	if e.Protocol != ProtocolHTTP && e.Protocol != ProtocolGRPC {
		return fmt.Errorf("%s protocol '%s': %w", signal, e.Protocol, ErrInvalidProtocol)
	}
	if strings.Contains(e.Endpoint, "://") {
		return fmt.Errorf("%s endpoint '%s': %w", signal, e.Endpoint, ErrInvalidEndpointFormat)
	}
	return nil
}
