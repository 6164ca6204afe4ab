package config

import "time"

// Config is the root configuration structure for Khawab.
// It contains the settings for the inference upstream, the interpretation
// client, the edge proxy, the history store and telemetry.
type Config struct {
	// Upstream describes the inference server the proxy forwards to and
	// the model the client asks for.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Client contains settings for the interpretation client.
	Client ClientConfig `yaml:"client"`

	// Proxy contains HTTP edge proxy configuration including listen address,
	// mount prefix, forwarding behaviour and CORS.
	Proxy ProxyConfig `yaml:"proxy"`

	// History contains configuration for the local interpretation history.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// UpstreamConfig describes the remote inference server.
type UpstreamConfig struct {
	// BaseURL is the fixed upstream inference host the proxy forwards to.
	// Default: "https://ollama.aikafanda.com"
	BaseURL string `yaml:"base_url"`

	// Model is the model name sent in generate requests.
	// Default: "llama3.2"
	Model string `yaml:"model"`

	// Access holds the optional gateway credentials. When both values are
	// set they are attached to upstream requests.
	Access AccessConfig `yaml:"access"`
}

// AccessConfig holds the two static secrets expected by the access gateway
// in front of the inference server.
type AccessConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Enabled reports whether both credential values are present.
func (a AccessConfig) Enabled() bool {
	return a.ClientID != "" && a.ClientSecret != ""
}

// ClientConfig contains settings for the interpretation client.
type ClientConfig struct {
	// BaseURL is where the client sends generate requests. This is usually
	// the proxy mount (e.g. "http://127.0.0.1:8080/ollama").
	// Default: "http://127.0.0.1:8080/ollama"
	BaseURL string `yaml:"base_url"`

	// MaxDreamLength is the maximum accepted dream length in characters.
	// Default: 2000
	MaxDreamLength int `yaml:"max_dream_length"`

	// RequestTimeout bounds a single interpretation from issuance.
	// Default: 45s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MinRequestInterval is the minimum time between the starts of two
	// successive interpretations from the same client.
	// Default: 2s
	MinRequestInterval time.Duration `yaml:"min_request_interval"`

	// SendAccessHeaders attaches the upstream access credentials to client
	// requests. Only useful when the client talks to the upstream directly.
	// Default: false
	SendAccessHeaders bool `yaml:"send_access_headers"`
}

// ProxyConfig contains configuration for the HTTP edge proxy.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// Mount is the path prefix under which requests are forwarded.
	// Default: "/ollama"
	Mount string `yaml:"mount"`

	// DefaultPath is forwarded when the request carries no path after the
	// mount. Empty means the upstream root.
	// Default: "api/tags"
	DefaultPath string `yaml:"default_path"`

	// StripOriginHeader removes the Origin header before forwarding.
	// Default: true
	StripOriginHeader bool `yaml:"strip_origin_header"`

	// InjectAccessHeaders attaches the upstream access credentials to every
	// forwarded request.
	// Default: true
	InjectAccessHeaders bool `yaml:"inject_access_headers"`

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration applied to proxied responses.
type CORSConfig struct {
	// AllowedMethods is advertised in Access-Control-Allow-Methods.
	// Default: ["GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is advertised in Access-Control-Allow-Headers.
	// Default: ["*"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// AllowCredentials sets Access-Control-Allow-Credentials.
	// Default: true
	AllowCredentials bool `yaml:"allow_credentials"`
}

// HistoryConfig contains configuration for the interpretation history.
type HistoryConfig struct {
	// Backend selects the storage backend: "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// MaxEntries caps the number of stored interpretations.
	// Default: 100
	MaxEntries int `yaml:"max_entries"`

	// SQLite contains settings for the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures scheduled pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver name: "sqlite3" (cgo) or "sqlite"
	// (pure Go).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures history pruning.
type RetentionConfig struct {
	// Schedule is a standard cron expression. Empty disables pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxAge removes entries older than this. Zero keeps entries forever.
	// Default: 0
	MaxAge time.Duration `yaml:"max_age"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "khawab"
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled (0.0 - 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "khawab"
	ServiceName string `yaml:"service_name"`
}
