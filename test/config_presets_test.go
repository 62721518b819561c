package test

import (
	"testing"
	"time"

	goAttend "github.com/MrEthical07/goAttend"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := goAttend.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.Guard.LoginPath != "/login" || cfg.Guard.DefaultPath != "/dashboard" {
		t.Fatalf("unexpected guard paths %+v", cfg.Guard)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Fatalf("expected 30s request timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Session.CookieSecure {
		t.Fatalf("secure cookies should be opt-in")
	}
}

func TestDefaultConfigBuildsWithoutRedis(t *testing.T) {
	engine, err := goAttend.New().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if !engine.Health(t.Context()).TokenStoreAvailable {
		t.Fatalf("memory backend should always report available")
	}
}
