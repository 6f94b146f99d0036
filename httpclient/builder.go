package httpclient

import (
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/backoffice-client/httpclient/internal/tracking"
	"github.com/gaborage/backoffice-client/logger"
	"github.com/gaborage/backoffice-client/session"
)

const instrumentationName = "github.com/gaborage/backoffice-client/httpclient"

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config         *Config
	logger         logger.Logger
	transport      nethttp.RoundTripper
	session        *session.Store
	navigator      Navigator
	notifier       Notifier
	sleeper        Sleeper
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{
		config: &Config{
			Timeout:             DefaultTimeout,
			Retry:               DefaultRetryPolicy(),
			DefaultErrorMessage: DefaultErrorMessage,
			DefaultHeaders:      make(map[string]string),
			MaxPayloadLogBytes:  DefaultMaxPayloadLogBytes,
		},
		logger: log,
	}
}

// WithBaseURL sets the URL request paths are joined onto
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout overrides the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	if timeout > 0 {
		b.config.Timeout = timeout
	}
	return b
}

// WithRetryPolicy sets the retry configuration
func (b *Builder) WithRetryPolicy(policy RetryPolicy) *Builder {
	b.config.Retry = policy
	return b
}

// WithDefaultErrorMessage sets the message used for Unknown failures
func (b *Builder) WithDefaultErrorMessage(msg string) *Builder {
	if msg != "" {
		b.config.DefaultErrorMessage = msg
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithSession attaches the token store used for bearer auth and 401 handling
func (b *Builder) WithSession(store *session.Store) *Builder {
	b.session = store
	return b
}

// WithNavigator sets the host routing boundary used after a 401
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithNotifier sets the sink that receives every terminal failure
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithSleeper replaces the context-aware wait used between retries
func (b *Builder) WithSleeper(s Sleeper) *Builder {
	b.sleeper = s
	return b
}

// WithTransport sets the round tripper used for every attempt
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithTracerProvider sets the provider for request spans (default: otel global)
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMeterProvider sets the provider for client metrics (default: otel global)
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithPropagator sets the propagator injecting trace context headers (default: otel global)
func (b *Builder) WithPropagator(p propagation.TextMapPropagator) *Builder {
	b.propagator = p
	return b
}

// WithPayloadLogging enables debug logging of headers and bodies, capped at maxBytes
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// Build creates the REST client with the configured options
func (b *Builder) Build() Client {
	transport := b.transport
	if transport == nil {
		transport = nethttp.DefaultTransport
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	prop := b.propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	sleeper := b.sleeper
	if sleeper == nil {
		sleeper = contextSleep
	}

	return &client{
		// Attempt deadlines come from the request context, not http.Client.Timeout.
		httpClient: &nethttp.Client{Transport: transport},
		logger:     b.logger,
		config:     b.config,
		session:    b.session,
		navigator:  b.navigator,
		notifier:   b.notifier,
		sleeper:    sleeper,
		tracer:     tp.Tracer(instrumentationName),
		propagator: prop,
		metrics:    tracking.New(b.meterProvider),
		guard:      newUnauthorizedGuard(),
	}
}
