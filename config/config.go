package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the environment variables read by Load.
// BACKOFFICE_API_BASEURL overrides api.baseurl.
const EnvPrefix = "BACKOFFICE_"

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. The environment-specific YAML file next to path, e.g. backoffice.production.yaml
// 3. The YAML file at path
// 4. Default values (lowest priority)
//
// An empty path skips both files. A non-empty path must exist.
func Load(path string) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if path == "" {
			return nil
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}

		envName := os.Getenv(EnvVarFor("app.env"))
		if envName == "" {
			envName = k.String("app.env")
		}
		envFile := envSpecificPath(path, envName)
		if envFile == "" {
			return nil
		}
		if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		return nil
	})
}

// LoadFromBytes loads configuration from an in-memory YAML document layered
// over the defaults. Environment variables still take precedence.
func LoadFromBytes(data []byte) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if len(data) == 0 {
			return nil
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		return nil
	})
}

func load(loadFiles func(*koanf.Koanf) error) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadFiles(k); err != nil {
		return nil, err
	}

	if err := loadEnv(k); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Telemetry identifies the client the way app does unless configured separately.
	if cfg.Observability.Service.Version == "" {
		cfg.Observability.Service.Version = cfg.App.Version
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = cfg.App.Env
	}
	cfg.Observability.ApplyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "backoffice",
		"app.version": "dev",
		"app.env":     EnvDevelopment,

		"api.baseurl":             "http://localhost:8000/api",
		"api.defaulterrormessage": "an unexpected error occurred",

		"retry.maxattempts":   3,
		"retry.basedelay":     "1s",
		"retry.nonidempotent": false,

		"session.storage": StorageSQLite,
		"session.key":     "auth_token",
		"session.path":    DefaultSessionPath(),

		"log.level":           "",
		"log.pretty":          false,
		"log.payloads":        false,
		"log.maxpayloadbytes": 1024,

		"observability.enabled":      false,
		"observability.service.name": "backoffice",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// DefaultSessionPath is the SQLite session file under the user's config
// directory, falling back to the temp directory when none is known.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "backoffice", "session.db")
}

func loadEnv(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// BACKOFFICE_RETRY_MAXATTEMPTS -> retry.maxattempts
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil)
}

func envSpecificPath(path, envName string) string {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + envName + ext
}
