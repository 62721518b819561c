// Package config loads the portal server configuration from a YAML file, a
// .env file and GOATTEND_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/internal/logging"
	"github.com/MrEthical07/goAttend/internal/rate"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "GOATTEND_"

// Server is everything `goattend serve` needs.
type Server struct {
	Listen   string          `yaml:"listen"`
	Redis    Redis           `yaml:"redis"`
	Log      Log             `yaml:"log"`
	Throttle rate.Config     `yaml:"throttle"`
	Portal   goAttend.Config `yaml:"portal"`
}

// Redis locates the credential store. An empty Addr means an embedded
// in-process Redis, which does not survive restarts.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the server configuration used when nothing is set.
func Default() Server {
	return Server{
		Listen:   ":8080",
		Log:      Log{Level: "info", Format: "text"},
		Throttle: rate.DefaultConfig(),
		Portal:   goAttend.DefaultConfig(),
	}
}

// Load builds a Server from defaults, the YAML file at path (skipped when
// path is empty), the .env file at dotenv (skipped when empty or missing)
// and the environment. The result is validated.
func Load(path, dotenv string) (*Server, error) {
	cfg := Default()

	if dotenv != "" {
		if err := LoadDotEnv(dotenv); err != nil {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks server-level settings and the embedded portal config.
func (s *Server) Validate() error {
	if strings.TrimSpace(s.Listen) == "" {
		return errors.New("listen address must not be empty")
	}
	if s.Redis.DB < 0 {
		return errors.New("redis db must be >= 0")
	}
	if err := logging.Validate(logging.Options{Level: s.Log.Level, Format: s.Log.Format}); err != nil {
		return err
	}
	if err := s.Throttle.Validate(); err != nil {
		return err
	}
	if err := s.Portal.Validate(); err != nil {
		return fmt.Errorf("portal: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Server, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("LISTEN", &cfg.Listen)
	e.str("REDIS_ADDR", &cfg.Redis.Addr)
	e.str("REDIS_PASSWORD", &cfg.Redis.Password)
	e.int("REDIS_DB", &cfg.Redis.DB)
	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)
	e.bool("THROTTLE_ENABLED", &cfg.Throttle.Enabled)
	e.int("THROTTLE_MAX_ATTEMPTS", &cfg.Throttle.MaxAttempts)
	e.dur("THROTTLE_WINDOW", &cfg.Throttle.Window)

	p := &cfg.Portal
	e.str("API_BASE_URL", &p.API.BaseURL)
	e.dur("API_TIMEOUT", &p.API.Timeout)
	e.str("REDIS_PREFIX", &p.Session.RedisPrefix)
	e.dur("SESSION_TTL", &p.Session.TTL)
	e.dur("SESSION_IDLE_TIMEOUT", &p.Session.IdleTimeout)
	e.bool("COOKIE_SECURE", &p.Session.CookieSecure)
	e.dur("RECOVERY_TIMEOUT", &p.Recovery.Timeout)
	e.dur("POLL_NOTIFICATION_INTERVAL", &p.Poll.NotificationInterval)
	e.bool("AUDIT_ENABLED", &p.Audit.Enabled)
	e.bool("METRICS_ENABLED", &p.Metrics.Enabled)
	if !p.Metrics.Enabled {
		p.Metrics.EnableLatencyHistograms = false
	}

	return e.err
}

// envReader applies GOATTEND_ overrides and keeps the first parse error.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(name string, err error) {
	e.err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) int(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = n
}

func (e *envReader) bool(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = b
}

func (e *envReader) dur(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = d
}
