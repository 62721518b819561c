package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.Portal.Guard.LoginPath != "/login" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "goattend.yaml", `
listen: ":9000"
redis:
  addr: "localhost:6379"
  db: 2
log:
  level: debug
  format: json
portal:
  api:
    base_url: "https://attend.example.com/api"
    timeout: 5s
  recovery:
    timeout: 3s
`)

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected server settings: %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log settings: %+v", cfg.Log)
	}
	if cfg.Portal.API.BaseURL != "https://attend.example.com/api" || cfg.Portal.API.Timeout != 5*time.Second {
		t.Fatalf("unexpected api settings: %+v", cfg.Portal.API)
	}
	if cfg.Portal.Recovery.Timeout != 3*time.Second {
		t.Fatalf("expected recovery timeout 3s, got %v", cfg.Portal.Recovery.Timeout)
	}
	// Untouched nested fields keep their defaults.
	if cfg.Portal.Session.CookieName != "goattend_sid" {
		t.Fatalf("expected default cookie name, got %q", cfg.Portal.Session.CookieName)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "goattend.yaml", "listen: \":9000\"\n")
	t.Setenv("GOATTEND_LISTEN", ":7000")
	t.Setenv("GOATTEND_API_BASE_URL", "http://backend:5000/api")
	t.Setenv("GOATTEND_COOKIE_SECURE", "true")
	t.Setenv("GOATTEND_RECOVERY_TIMEOUT", "4s")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":7000" || cfg.Portal.API.BaseURL != "http://backend:5000/api" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !cfg.Portal.Session.CookieSecure || cfg.Portal.Recovery.Timeout != 4*time.Second {
		t.Fatalf("env not applied: %+v", cfg.Portal)
	}
}

func TestEnvParseErrorNamesVariable(t *testing.T) {
	t.Setenv("GOATTEND_API_TIMEOUT", "soon")

	_, err := Load("", "")
	if err == nil || !strings.Contains(err.Error(), "GOATTEND_API_TIMEOUT") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}
}

func TestMetricsDisabledByEnvDisablesHistograms(t *testing.T) {
	t.Setenv("GOATTEND_METRICS_ENABLED", "false")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Portal.Metrics.Enabled || cfg.Portal.Metrics.EnableLatencyHistograms {
		t.Fatalf("expected metrics fully disabled: %+v", cfg.Portal.Metrics)
	}
}

func TestLoadRejectsInvalidPortalConfig(t *testing.T) {
	path := writeFile(t, "goattend.yaml", "portal:\n  api:\n    base_url: \"ftp://nope\"\n")

	if _, err := Load(path, ""); err == nil || !strings.HasPrefix(err.Error(), "portal:") {
		t.Fatalf("expected portal validation error, got %v", err)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), ""); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	const setKey, newKey = "GOATTEND_LOG_LEVEL", "GOATTEND_LOG_FORMAT"
	t.Setenv(setKey, "warn")
	if _, ok := os.LookupEnv(newKey); ok {
		t.Skipf("%s set in the test environment", newKey)
	}
	t.Cleanup(func() { _ = os.Unsetenv(newKey) })

	dotenv := writeFile(t, ".env", "# comment\nGOATTEND_LOG_LEVEL=debug\nexport GOATTEND_LOG_FORMAT=\"json\"\nbroken line\n")

	cfg, err := Load("", dotenv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("expected process env to win, got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("expected .env value, got %q", cfg.Log.Format)
	}
}

func TestMissingDotEnvIsIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected nil for missing .env, got %v", err)
	}
}

func TestThrottleSettings(t *testing.T) {
	path := writeFile(t, "goattend.yaml", "throttle:\n  max_attempts: 4\n  window: 5m\n")
	t.Setenv("GOATTEND_THROTTLE_WINDOW", "90s")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Throttle.Enabled || cfg.Throttle.MaxAttempts != 4 {
		t.Fatalf("unexpected throttle %+v", cfg.Throttle)
	}
	if cfg.Throttle.Window != 90*time.Second {
		t.Fatalf("env should override window, got %v", cfg.Throttle.Window)
	}

	t.Setenv("GOATTEND_THROTTLE_MAX_ATTEMPTS", "0")
	if _, err := Load(path, ""); err == nil {
		t.Fatalf("expected zero max attempts to be rejected")
	}
}
