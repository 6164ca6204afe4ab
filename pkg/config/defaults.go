package config

import "time"

// Default values for configuration fields.
const (
	// Upstream defaults
	DefaultUpstreamBaseURL = "https://ollama.aikafanda.com"
	DefaultModel           = "llama3.2"

	// Client defaults
	DefaultClientBaseURL      = "http://127.0.0.1:8080/ollama"
	DefaultMaxDreamLength     = 2000
	DefaultRequestTimeout     = 45 * time.Second
	DefaultMinRequestInterval = 2 * time.Second

	// Proxy defaults
	DefaultListenAddress     = "127.0.0.1:8080"
	DefaultMount             = "/ollama"
	DefaultForwardPath       = "api/tags"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second

	// History defaults
	DefaultHistoryBackend     = "sqlite"
	DefaultHistoryMaxEntries  = 100
	DefaultHistorySQLitePath  = "data/history.db"
	DefaultHistorySQLiteDrv   = "sqlite"
	DefaultHistoryBusyTimeout = 5 * time.Second
	DefaultRetentionSchedule  = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "khawab"
	DefaultTracingRatio     = 1.0
	DefaultServiceName      = "khawab"
)

// Default returns a configuration with every field set to its default value.
// Options whose zero value is meaningful (true booleans, an empty default
// path, an empty schedule) only get their defaults here, so file loading
// starts from this value rather than from a zero Config.
func Default() *Config {
	cfg := &Config{
		Proxy: ProxyConfig{
			DefaultPath:         DefaultForwardPath,
			StripOriginHeader:   true,
			InjectAccessHeaders: true,
			CORS: CORSConfig{
				AllowCredentials: true,
			},
		},
		History: HistoryConfig{
			Retention: RetentionConfig{Schedule: DefaultRetentionSchedule},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset (zero) field with its default value.
func ApplyDefaults(cfg *Config) {
	applyUpstreamDefaults(&cfg.Upstream)
	applyClientDefaults(&cfg.Client)
	applyProxyDefaults(&cfg.Proxy)
	applyHistoryDefaults(&cfg.History)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyUpstreamDefaults(cfg *UpstreamConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultClientBaseURL
	}
	if cfg.MaxDreamLength == 0 {
		cfg.MaxDreamLength = DefaultMaxDreamLength
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MinRequestInterval == 0 {
		cfg.MinRequestInterval = DefaultMinRequestInterval
	}
}

func applyProxyDefaults(cfg *ProxyConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.Mount == "" {
		cfg.Mount = DefaultMount
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.CORS.AllowedMethods == nil {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if cfg.CORS.AllowedHeaders == nil {
		cfg.CORS.AllowedHeaders = []string{"*"}
	}
}

func applyHistoryDefaults(cfg *HistoryConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultHistoryBackend
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultHistoryMaxEntries
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultHistorySQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultHistorySQLiteDrv
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultHistoryBusyTimeout
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}
}
