package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gaborage/backoffice-client/config"
	"github.com/gaborage/backoffice-client/httpclient"
	"github.com/gaborage/backoffice-client/logger"
	"github.com/gaborage/backoffice-client/observability"
	"github.com/gaborage/backoffice-client/session"
)

// Runtime builds the shared dependencies of a command invocation on first use.
type Runtime struct {
	ConfigPath string
	Stdout     io.Writer
	Stderr     io.Writer

	cfg      *config.Config
	log      logger.Logger
	provider observability.Provider
	storage  session.Storage
	store    *session.Store
	host     *terminalHost
	closers  []func(context.Context) error
}

// NewRuntime creates a runtime writing user-facing output to stdout and stderr.
func NewRuntime(stdout, stderr io.Writer) *Runtime {
	return &Runtime{Stdout: stdout, Stderr: stderr}
}

// Config loads the configuration once.
func (r *Runtime) Config() (*config.Config, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}
	cfg, err := config.Load(r.ConfigPath)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg
	r.log = logger.NewForMode(cfg.App.Env, cfg.Log.Level, cfg.Log.Pretty, r.Stderr)
	return cfg, nil
}

// Logger returns the configured logger, or a no-op logger before Config succeeds.
func (r *Runtime) Logger() logger.Logger {
	if r.log == nil {
		return logger.NewNop()
	}
	return r.log
}

// Session opens the configured token storage.
func (r *Runtime) Session(ctx context.Context) (*session.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}

	switch cfg.Session.Storage {
	case config.StorageSQLite:
		sqlite, err := session.OpenSQLiteStorage(ctx, cfg.Session.Path)
		if err != nil {
			return nil, fmt.Errorf("open session storage: %w", err)
		}
		r.closers = append(r.closers, func(context.Context) error { return sqlite.Close() })
		r.storage = sqlite
	case config.StorageMemory:
		r.storage = session.NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unknown session storage %q", cfg.Session.Storage)
	}

	r.store = session.NewStore(r.storage, session.WithKey(cfg.Session.Key), session.WithLogger(r.log))
	return r.store, nil
}

// Client builds the REST client with the terminal as its navigation and notification host.
func (r *Runtime) Client(ctx context.Context) (httpclient.Client, error) {
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}
	store, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.startTelemetry(cfg); err != nil {
		return nil, err
	}

	r.host = newTerminalHost(r.Stderr)
	b := httpclient.NewBuilder(r.log).
		WithBaseURL(cfg.API.BaseURL).
		WithDefaultErrorMessage(cfg.API.DefaultErrorMessage).
		WithRetryPolicy(httpclient.RetryPolicy{
			MaxAttempts:        cfg.Retry.MaxAttempts,
			BaseDelay:          cfg.Retry.BaseDelay,
			RetryNonIdempotent: cfg.Retry.NonIdempotent,
		}).
		WithPayloadLogging(cfg.Log.Payloads, cfg.Log.MaxPayloadBytes).
		WithSession(store).
		WithNavigator(r.host).
		WithNotifier(r.host)
	for k, v := range cfg.API.Headers {
		b.WithDefaultHeader(k, v)
	}
	if r.provider != nil {
		b.WithTracerProvider(r.provider.TracerProvider()).WithMeterProvider(r.provider.MeterProvider())
	}
	return b.Build(), nil
}

func (r *Runtime) startTelemetry(cfg *config.Config) error {
	if r.provider != nil || !cfg.Observability.Enabled {
		return nil
	}
	provider, err := observability.NewProvider(&cfg.Observability)
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}
	r.provider = provider
	r.closers = append(r.closers, provider.Shutdown)
	return nil
}

// Close releases storage and flushes telemetry.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
