package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var (
	validEnvs     = []string{EnvDevelopment, EnvLocal, EnvTest, EnvStaging, EnvProduction}
	validStorages = []string{StorageMemory, StorageSQLite}
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg with its struct tags and then the cross-field rules
// that tags cannot express.
func Validate(cfg *Config) error {
	if err := validateStruct(cfg); err != nil {
		return err
	}

	if err := validateApp(&cfg.App); err != nil {
		return fmt.Errorf("app config: %w", err)
	}

	if err := validateRetry(&cfg.Retry); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}

	if err := validateSession(&cfg.Session); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}

	return nil
}

func validateStruct(cfg *Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	// Namespace is "Config.api.baseurl"; drop the root struct name.
	_, key, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required", "required_if":
		return NewMissingFieldError(key)
	case "url":
		return NewInvalidFieldError(key, fmt.Sprintf("'%v' is not a valid url", fe.Value()), nil)
	case "gte":
		return NewInvalidFieldError(key, "must be at least "+fe.Param(), nil)
	case "lte":
		return NewInvalidFieldError(key, "must be at most "+fe.Param(), nil)
	default:
		return NewInvalidFieldError(key, "failed '"+fe.Tag()+"' check", nil)
	}
}

func validateApp(app *AppConfig) error {
	if !slices.Contains(validEnvs, app.Env) {
		return NewInvalidFieldError("app.env", fmt.Sprintf("unknown environment '%s'", app.Env), validEnvs)
	}
	return nil
}

func validateRetry(retry *RetryConfig) error {
	if retry.MaxAttempts > 0 && retry.BaseDelay <= 0 {
		return NewInvalidFieldError("retry.basedelay", "must be positive when retries are enabled", nil)
	}
	return nil
}

func validateSession(session *SessionConfig) error {
	if !slices.Contains(validStorages, session.Storage) {
		return NewInvalidFieldError("session.storage", fmt.Sprintf("unknown storage '%s'", session.Storage), validStorages)
	}
	return nil
}

func validateLog(log *LogConfig) error {
	if log.Level == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(log.Level)); err != nil {
		return NewInvalidFieldError("log.level", fmt.Sprintf("unknown level '%s'", log.Level),
			[]string{"debug", "info", "warn", "error"})
	}
	return nil
}
