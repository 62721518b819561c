package cli

import (
	"github.com/MrEthical07/goAttend/internal/config"
	"github.com/spf13/cobra"
)

// loadFlags are shared by every command that reads configuration.
type loadFlags struct {
	configPath string
	dotenv     string
	listen     string
	apiBaseURL string
	redisAddr  string
	logLevel   string
	logFormat  string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fs.StringVar(&f.dotenv, "env-file", ".env", "dotenv file with GOATTEND_* variables; missing is fine")
	fs.StringVar(&f.listen, "listen", "", "listen address (overrides config)")
	fs.StringVar(&f.apiBaseURL, "api-base-url", "", "attendance API base URL (overrides config)")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Redis address; empty runs an embedded Redis")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
}

// load reads configuration and applies flags the user set explicitly.
func (f *loadFlags) load(cmd *cobra.Command) (*config.Server, error) {
	cfg, err := config.Load(f.configPath, f.dotenv)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("listen") {
		cfg.Listen = f.listen
	}
	if fs.Changed("api-base-url") {
		cfg.Portal.API.BaseURL = f.apiBaseURL
	}
	if fs.Changed("redis-addr") {
		cfg.Redis.Addr = f.redisAddr
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
