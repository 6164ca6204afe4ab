package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It starts from Default, overlays the file, fills remaining zero values and
// validates the result. An empty path yields the validated defaults.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
		ApplyDefaults(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention KHAWAB_FIELD (e.g., KHAWAB_UPSTREAM_BASE_URL) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
//  1. Start from defaults
//  2. Overlay YAML from file (if a path is given)
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error unless required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Unparseable numeric, boolean or duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Upstream overrides
	if val := os.Getenv("KHAWAB_UPSTREAM_BASE_URL"); val != "" {
		cfg.Upstream.BaseURL = val
	}
	if val := os.Getenv("KHAWAB_MODEL"); val != "" {
		cfg.Upstream.Model = val
	}
	if val := os.Getenv("KHAWAB_CF_ACCESS_CLIENT_ID"); val != "" {
		cfg.Upstream.Access.ClientID = val
	}
	if val := os.Getenv("KHAWAB_CF_ACCESS_CLIENT_SECRET"); val != "" {
		cfg.Upstream.Access.ClientSecret = val
	}

	// Client overrides
	if val := os.Getenv("KHAWAB_CLIENT_BASE_URL"); val != "" {
		cfg.Client.BaseURL = val
	}
	if val := os.Getenv("KHAWAB_MAX_DREAM_LENGTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Client.MaxDreamLength = i
		}
	}
	if val := os.Getenv("KHAWAB_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Client.RequestTimeout = d
		}
	}
	if val := os.Getenv("KHAWAB_MIN_REQUEST_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Client.MinRequestInterval = d
		}
	}

	// Proxy overrides
	if val := os.Getenv("KHAWAB_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("KHAWAB_PROXY_MOUNT"); val != "" {
		cfg.Proxy.Mount = val
	}
	if val, ok := os.LookupEnv("KHAWAB_PROXY_DEFAULT_PATH"); ok {
		cfg.Proxy.DefaultPath = val
	}
	if val := os.Getenv("KHAWAB_PROXY_STRIP_ORIGIN"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Proxy.StripOriginHeader = b
		}
	}

	// History overrides
	if val := os.Getenv("KHAWAB_HISTORY_BACKEND"); val != "" {
		cfg.History.Backend = val
	}
	if val := os.Getenv("KHAWAB_HISTORY_SQLITE_PATH"); val != "" {
		cfg.History.SQLite.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("KHAWAB_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("KHAWAB_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("KHAWAB_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("KHAWAB_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("KHAWAB_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}
