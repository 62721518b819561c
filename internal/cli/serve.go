package cli

import (
	"fmt"

	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/internal/logging"
	"github.com/MrEthical07/goAttend/internal/portal"
	"github.com/MrEthical07/goAttend/internal/rate"
	"github.com/MrEthical07/goAttend/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var flags loadFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, flags *loadFlags) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	addr := cfg.Redis.Addr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		logger.Warn("no redis address configured, sessions will not survive a restart", "embedded_addr", addr)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	b := goAttend.New().
		WithConfig(cfg.Portal).
		WithRedis(rdb).
		WithLogger(logger)
	if cfg.Portal.Audit.Enabled {
		b = b.WithAuditSink(goAttend.NewSlogSink(logger))
	}
	engine, err := b.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	srv, err := portal.New(engine, portal.Options{
		Logger:   logger,
		Metrics:  prometheus.New(engine).Handler(),
		Throttle: rate.New(rdb, cfg.Throttle),
	})
	if err != nil {
		return err
	}

	logger.Info("starting portal", "api", cfg.Portal.API.BaseURL, "redis", addr)
	return srv.ListenAndServe(cmd.Context(), cfg.Listen)
}
