package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.mount").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateClient(&cfg.Client)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if err := validateAbsoluteURL(cfg.BaseURL); err != "" {
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: err})
	}
	if cfg.Model == "" {
		errs = append(errs, FieldError{Field: "upstream.model", Message: "model is required"})
	}

	// Half-configured credentials are almost always a deployment mistake.
	if (cfg.Access.ClientID == "") != (cfg.Access.ClientSecret == "") {
		errs = append(errs, FieldError{
			Field:   "upstream.access",
			Message: "client_id and client_secret must be set together",
		})
	}

	return errs
}

func validateClient(cfg *ClientConfig) []FieldError {
	var errs []FieldError

	if err := validateAbsoluteURL(cfg.BaseURL); err != "" {
		errs = append(errs, FieldError{Field: "client.base_url", Message: err})
	}
	if cfg.MaxDreamLength < 1 {
		errs = append(errs, FieldError{
			Field:   "client.max_dream_length",
			Message: "max dream length must be positive",
		})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "client.request_timeout",
			Message: "request timeout must be positive",
		})
	}
	if cfg.MinRequestInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "client.min_request_interval",
			Message: "minimum request interval must be non-negative",
		})
	}

	return errs
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}
	if !strings.HasPrefix(cfg.Mount, "/") {
		errs = append(errs, FieldError{
			Field:   "proxy.mount",
			Message: "mount must start with /",
		})
	} else if cfg.Mount != "/" && strings.HasSuffix(cfg.Mount, "/") {
		errs = append(errs, FieldError{
			Field:   "proxy.mount",
			Message: "mount must not end with /",
		})
	}
	if strings.ContainsAny(cfg.DefaultPath, "?#") {
		errs = append(errs, FieldError{
			Field:   "proxy.default_path",
			Message: "default path must not contain a query or fragment",
		})
	}
	if cfg.ReadHeaderTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_header_timeout",
			Message: "read header timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "history.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "history.sqlite.driver",
				Message: fmt.Sprintf("unsupported driver %q (expected sqlite or sqlite3)", cfg.SQLite.Driver),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "history.backend",
			Message: fmt.Sprintf("unsupported backend %q (expected memory or sqlite)", cfg.Backend),
		})
	}

	if cfg.MaxEntries < 1 {
		errs = append(errs, FieldError{
			Field:   "history.max_entries",
			Message: "max entries must be positive",
		})
	}
	if cfg.Retention.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "history.retention.max_age",
			Message: "max age must be non-negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

// validateAbsoluteURL returns an empty string for a valid http(s) URL.
func validateAbsoluteURL(raw string) string {
	if raw == "" {
		return "URL is required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "URL scheme must be http or https"
	}
	if u.Host == "" {
		return "URL must include a host"
	}
	return ""
}
