package goAttend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/goAttend/apiclient"
	"github.com/MrEthical07/goAttend/tokenstore"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it once at startup.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	backend    tokenstore.Backend
	httpClient *http.Client
	hooks      []apiclient.RequestHook
	auditSink  AuditSink
	logger     *slog.Logger

	built bool
}

// New starts from DefaultConfig. Nothing is validated until Build.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration; later With* calls override single fields.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis makes Redis the persistent token backend. It takes precedence over WithTokenBackend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenBackend sets a custom persistent token backend.
func (b *Builder) WithTokenBackend(backend tokenstore.Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the HTTP client used for backend calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithRequestHook appends a hook that runs on every backend request after
// the bearer credential is attached.
func (b *Builder) WithRequestHook(h apiclient.RequestHook) *Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// WithAuditSink only takes effect when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. A Builder
// can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- API CLIENT --------
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithUserAgent(cfg.API.UserAgent),
	}
	if b.httpClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(b.httpClient))
	}
	for _, h := range b.hooks {
		opts = append(opts, apiclient.WithHook(h))
	}
	api, err := apiclient.New(cfg.API.BaseURL, opts...)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN BACKEND --------
	var backend tokenstore.Backend
	switch {
	case b.redis != nil:
		backend = tokenstore.NewRedisBackend(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL, cfg.Session.Sliding)
	case b.backend != nil:
		backend = b.backend
	default:
		logger.Warn("no redis client configured, credentials are kept in process memory")
		backend = tokenstore.NewMemoryBackend()
	}

	engine := &Engine{
		config:   cfg,
		api:      api,
		backend:  backend,
		logger:   logger,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, engine.metrics, logger)

	if cfg.Session.IdleTimeout > 0 {
		engine.wg.Add(1)
		go engine.janitor(cfg.Session.SweepInterval)
	}

	b.built = true

	return engine, nil
}
