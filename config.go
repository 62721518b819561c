package goAttend

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config holds every tunable of the portal. Start from [DefaultConfig] and
// override; [Builder.Build] validates it.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Guard    GuardConfig    `yaml:"guard"`
	Poll     PollConfig     `yaml:"poll"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig describes the remote attendance backend.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls browsing-session storage.
//
// TTL bounds how long a persisted credential survives without the browser
// coming back; the cookie itself is a browser-session cookie. IdleTimeout
// controls eviction of in-memory Session objects only.
type SessionConfig struct {
	RedisPrefix   string        `yaml:"redis_prefix"`
	TTL           time.Duration `yaml:"ttl"`
	Sliding       bool          `yaml:"sliding"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	CookieName    string        `yaml:"cookie_name"`
	CookieSecure  bool          `yaml:"cookie_secure"`
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryConfig controls startup session recovery.
type RecoveryConfig struct {
	// Timeout bounds the GET /auth/profile call; expiry is a recovery failure.
	Timeout time.Duration `yaml:"timeout"`
	// SkipExpiredJWT fails recovery without a network call when the stored
	// credential is a JWT whose exp has passed.
	SkipExpiredJWT bool          `yaml:"skip_expired_jwt"`
	ExpiryLeeway   time.Duration `yaml:"expiry_leeway"`
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig controls route-guard redirects and the loading placeholder.
type GuardConfig struct {
	LoginPath   string `yaml:"login_path"`
	DefaultPath string `yaml:"default_path"`
	// RecoveryWait is how long a request waits for an in-flight recovery
	// before the loading placeholder is rendered.
	RecoveryWait   time.Duration `yaml:"recovery_wait"`
	LoadingRefresh time.Duration `yaml:"loading_refresh"`
}

// PollConfig controls periodic background fetches.
type PollConfig struct {
	NotificationInterval time.Duration `yaml:"notification_interval"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   30 * time.Second,
			UserAgent: "goattend-portal",
		},
		Session: SessionConfig{
			RedisPrefix:   "ga",
			TTL:           12 * time.Hour,
			Sliding:       true,
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
			CookieName:    "goattend_sid",
		},
		Recovery: RecoveryConfig{
			Timeout:        10 * time.Second,
			SkipExpiredJWT: true,
			ExpiryLeeway:   30 * time.Second,
		},
		Guard: GuardConfig{
			LoginPath:      "/login",
			DefaultPath:    "/dashboard",
			RecoveryWait:   2 * time.Second,
			LoadingRefresh: time.Second,
		},
		Poll: PollConfig{
			NotificationInterval: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("API BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("API BaseURL scheme must be http or https")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}

	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.IdleTimeout < 0 {
		return errors.New("Session IdleTimeout must be >= 0")
	}
	if c.Session.IdleTimeout > 0 && c.Session.SweepInterval <= 0 {
		return errors.New("Session SweepInterval must be > 0 when IdleTimeout is set")
	}
	if c.Session.CookieName == "" || strings.ContainsAny(c.Session.CookieName, " ;,=") {
		return errors.New("Session CookieName is invalid")
	}

	if c.Recovery.Timeout <= 0 {
		return errors.New("Recovery Timeout must be > 0")
	}
	if c.Recovery.ExpiryLeeway < 0 || c.Recovery.ExpiryLeeway > 5*time.Minute {
		return errors.New("Recovery ExpiryLeeway must be within [0, 5m]")
	}

	if !strings.HasPrefix(c.Guard.LoginPath, "/") {
		return errors.New("Guard LoginPath must start with /")
	}
	if !strings.HasPrefix(c.Guard.DefaultPath, "/") {
		return errors.New("Guard DefaultPath must start with /")
	}
	if c.Guard.LoginPath == c.Guard.DefaultPath {
		return errors.New("Guard LoginPath and DefaultPath must differ")
	}
	if c.Guard.RecoveryWait < 0 {
		return errors.New("Guard RecoveryWait must be >= 0")
	}
	if c.Guard.LoadingRefresh <= 0 {
		return errors.New("Guard LoadingRefresh must be > 0")
	}

	if c.Poll.NotificationInterval < time.Second {
		return errors.New("Poll NotificationInterval must be >= 1s")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
