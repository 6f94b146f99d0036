package config

import (
	"time"

	"github.com/gaborage/backoffice-client/observability"
)

// Config is the complete client configuration.
type Config struct {
	App           AppConfig            `koanf:"app"`
	API           APIConfig            `koanf:"api"`
	Retry         RetryConfig          `koanf:"retry"`
	Session       SessionConfig        `koanf:"session"`
	Log           LogConfig            `koanf:"log"`
	Observability observability.Config `koanf:"observability"`
}

// AppConfig identifies the running client.
type AppConfig struct {
	Name    string `koanf:"name" validate:"required"`
	Version string `koanf:"version" validate:"required"`
	Env     string `koanf:"env" validate:"required"`
}

// APIConfig describes the remote REST API.
type APIConfig struct {
	// BaseURL is prefixed to every request path.
	BaseURL string `koanf:"baseurl" validate:"required,url"`

	// DefaultErrorMessage is used for failures that carry no better message.
	DefaultErrorMessage string `koanf:"defaulterrormessage" validate:"required"`

	// Headers are sent with every request.
	Headers map[string]string `koanf:"headers"`
}

// RetryConfig controls automatic retries of transient failures.
type RetryConfig struct {
	MaxAttempts int           `koanf:"maxattempts" validate:"gte=0,lte=10"`
	BaseDelay   time.Duration `koanf:"basedelay"`

	// NonIdempotent allows retrying POST and PATCH requests that carry no idempotency key.
	NonIdempotent bool `koanf:"nonidempotent"`
}

// SessionConfig selects where the auth token is persisted.
type SessionConfig struct {
	Storage string `koanf:"storage" validate:"required"`
	Key     string `koanf:"key" validate:"required"`

	// Path is the SQLite database file, required for sqlite storage.
	// It defaults to DefaultSessionPath. Memory storage does not survive the process.
	Path string `koanf:"path" validate:"required_if=Storage sqlite"`
}

// LogConfig configures the zerolog logger and request/response logging.
type LogConfig struct {
	Level           string `koanf:"level"`
	Pretty          bool   `koanf:"pretty"`
	Payloads        bool   `koanf:"payloads"`
	MaxPayloadBytes int    `koanf:"maxpayloadbytes" validate:"gte=0"`
}

// Environment names accepted in app.env.
const (
	EnvDevelopment = "development"
	EnvLocal       = "local"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Session storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)
