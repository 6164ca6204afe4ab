package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "khawab.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}

	if cfg.Upstream.Model != DefaultModel {
		t.Errorf("expected model %q, got %q", DefaultModel, cfg.Upstream.Model)
	}
	if cfg.Client.MaxDreamLength != 2000 {
		t.Errorf("expected max dream length 2000, got %d", cfg.Client.MaxDreamLength)
	}
	if cfg.Client.RequestTimeout != 45*time.Second {
		t.Errorf("expected request timeout 45s, got %v", cfg.Client.RequestTimeout)
	}
	if cfg.Client.MinRequestInterval != 2*time.Second {
		t.Errorf("expected min interval 2s, got %v", cfg.Client.MinRequestInterval)
	}
	if cfg.Proxy.DefaultPath != "api/tags" {
		t.Errorf("expected default path api/tags, got %q", cfg.Proxy.DefaultPath)
	}
	if !cfg.Proxy.StripOriginHeader {
		t.Error("expected origin stripping to default to true")
	}
	if cfg.History.MaxEntries != 100 {
		t.Errorf("expected 100 history entries, got %d", cfg.History.MaxEntries)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
upstream:
  base_url: "https://models.example.com"
  model: "qwen2.5"
  access:
    client_id: "id-123"
    client_secret: "secret-456"

client:
  request_timeout: "10s"
  max_dream_length: 500

proxy:
  listen_address: "0.0.0.0:9090"
  mount: "/llm"
  default_path: ""
  strip_origin_header: false

history:
  backend: "memory"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Upstream.BaseURL != "https://models.example.com" {
		t.Errorf("unexpected base url %q", cfg.Upstream.BaseURL)
	}
	if !cfg.Upstream.Access.Enabled() {
		t.Error("expected access credentials to be enabled")
	}
	if cfg.Client.RequestTimeout != 10*time.Second {
		t.Errorf("expected request timeout 10s, got %v", cfg.Client.RequestTimeout)
	}
	if cfg.Client.MinRequestInterval != DefaultMinRequestInterval {
		t.Errorf("expected default min interval, got %v", cfg.Client.MinRequestInterval)
	}
	if cfg.Proxy.Mount != "/llm" {
		t.Errorf("expected mount /llm, got %q", cfg.Proxy.Mount)
	}
	if cfg.Proxy.DefaultPath != "" {
		t.Errorf("expected explicit empty default path to survive, got %q", cfg.Proxy.DefaultPath)
	}
	if cfg.Proxy.StripOriginHeader {
		t.Error("expected origin stripping to be disabled")
	}
	if cfg.History.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.History.Backend)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "upstream: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
upstream:
  model: "from-file"
`)

	t.Setenv("KHAWAB_MODEL", "from-env")
	t.Setenv("KHAWAB_UPSTREAM_BASE_URL", "https://env.example.com")
	t.Setenv("KHAWAB_CF_ACCESS_CLIENT_ID", "env-id")
	t.Setenv("KHAWAB_CF_ACCESS_CLIENT_SECRET", "env-secret")
	t.Setenv("KHAWAB_REQUEST_TIMEOUT", "5s")
	t.Setenv("KHAWAB_MIN_REQUEST_INTERVAL", "not-a-duration")
	t.Setenv("KHAWAB_PROXY_DEFAULT_PATH", "")
	t.Setenv("KHAWAB_PROXY_STRIP_ORIGIN", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Upstream.Model != "from-env" {
		t.Errorf("expected env model, got %q", cfg.Upstream.Model)
	}
	if cfg.Upstream.BaseURL != "https://env.example.com" {
		t.Errorf("expected env base url, got %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Access.ClientID != "env-id" || cfg.Upstream.Access.ClientSecret != "env-secret" {
		t.Errorf("unexpected access config %+v", cfg.Upstream.Access)
	}
	if cfg.Client.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Client.RequestTimeout)
	}
	if cfg.Client.MinRequestInterval != DefaultMinRequestInterval {
		t.Errorf("expected invalid duration to be ignored, got %v", cfg.Client.MinRequestInterval)
	}
	if cfg.Proxy.DefaultPath != "" {
		t.Errorf("expected set-but-empty env to clear default path, got %q", cfg.Proxy.DefaultPath)
	}
	if cfg.Proxy.StripOriginHeader {
		t.Error("expected origin stripping disabled by env")
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing optional file", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env"), false); err != nil {
			t.Errorf("expected nil for missing optional file, got %v", err)
		}
	})

	t.Run("missing required file", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env"), true); err == nil {
			t.Error("expected error for missing required file")
		}
	})

	t.Run("loads values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("KHAWAB_TEST_DOTENV=hello\n"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("KHAWAB_TEST_DOTENV", "")
		os.Unsetenv("KHAWAB_TEST_DOTENV")

		if err := LoadEnvFile(path, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("KHAWAB_TEST_DOTENV"); got != "hello" {
			t.Errorf("expected hello, got %q", got)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{
			name:   "relative upstream url",
			modify: func(c *Config) { c.Upstream.BaseURL = "/ollama" },
			field:  "upstream.base_url",
		},
		{
			name:   "half configured credentials",
			modify: func(c *Config) { c.Upstream.Access.ClientID = "only-id" },
			field:  "upstream.access",
		},
		{
			name:   "mount without slash",
			modify: func(c *Config) { c.Proxy.Mount = "ollama" },
			field:  "proxy.mount",
		},
		{
			name:   "mount with trailing slash",
			modify: func(c *Config) { c.Proxy.Mount = "/ollama/" },
			field:  "proxy.mount",
		},
		{
			name:   "unknown history backend",
			modify: func(c *Config) { c.History.Backend = "postgres" },
			field:  "history.backend",
		},
		{
			name:   "unknown sqlite driver",
			modify: func(c *Config) { c.History.SQLite.Driver = "mysql" },
			field:  "history.sqlite.driver",
		},
		{
			name:   "tracing without endpoint",
			modify: func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			field:  "telemetry.tracing.endpoint",
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			field:  "telemetry.logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "first"},
		{Field: "b", Message: "second"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "a: first") {
		t.Errorf("unexpected message %q", msg)
	}
}
