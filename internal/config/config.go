package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/metricshub/internal/errors"
)

const (
	DefaultLogLevel      = "info"
	DefaultListenAddr    = ":5001"
	DefaultDBPath        = "/var/lib/metricshub/metricshub.db"
	DefaultInterval      = 5
	DefaultStockInterval = 60
	DefaultQuoteDelayMS  = 1000
	DefaultQuoteURL      = "https://finnhub.io/api/v1"
)

// ServerConfig holds the collector server settings
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	Database string `mapstructure:"database"`
}

// AgentConfig holds the agent-side collection loop settings. StatusURL is
// shared by both loops unless a per-family override is set, so the loops
// can be stopped together or independently.
type AgentConfig struct {
	MetricsURL      string   `mapstructure:"metrics_url"`
	StockURL        string   `mapstructure:"stock_url"`
	StatusURL       string   `mapstructure:"status_url"`
	SystemStatusURL string   `mapstructure:"system_status_url"`
	StockStatusURL  string   `mapstructure:"stock_status_url"`
	Interval        int      `mapstructure:"interval"`
	StockInterval   int      `mapstructure:"stock_interval"`
	GroupKey        string   `mapstructure:"group_key"`
	Symbols         []string `mapstructure:"symbols"`
	QuoteURL        string   `mapstructure:"quote_url"`
	QuoteAPIKey     string   `mapstructure:"quote_api_key"`
	QuoteDelayMS    int      `mapstructure:"quote_delay_ms"`
}

// SystemStatus returns the stop-control URL for the system metrics loop.
func (a AgentConfig) SystemStatus() string {
	if a.SystemStatusURL != "" {
		return a.SystemStatusURL
	}
	return a.StatusURL
}

// StockStatus returns the stop-control URL for the stock metrics loop.
func (a AgentConfig) StockStatus() string {
	if a.StockStatusURL != "" {
		return a.StockStatusURL
	}
	return a.StatusURL
}

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Server   ServerConfig `mapstructure:"server"`
	Agent    AgentConfig  `mapstructure:"agent"`
}

// Load reads configuration from flags, environment and the optional
// metricshub.toml file. Flags override file values; the METRICSHUB_CONFIG
// environment variable points at an explicit config file.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("server.listen", DefaultListenAddr)
	v.SetDefault("server.database", DefaultDBPath)
	v.SetDefault("agent.interval", DefaultInterval)
	v.SetDefault("agent.stock_interval", DefaultStockInterval)
	v.SetDefault("agent.quote_url", DefaultQuoteURL)
	v.SetDefault("agent.quote_delay_ms", DefaultQuoteDelayMS)

	flags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.String("listen", "", "Server listen address")
	flags.String("database", "", "Path to the metrics database")
	flags.Int("interval", 0, "Seconds between system metric collections")
	flags.Int("stock-interval", 0, "Seconds between stock metric collections")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix("METRICSHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := os.Getenv("METRICSHUB_CONFIG")
	if path, err := flags.GetString("config"); err == nil && path != "" {
		configPath = path
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	} else {
		v.SetConfigName("metricshub")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
			}
		}
	}

	bindFlag(v, flags, "log-level", "log_level")
	bindFlag(v, flags, "listen", "server.listen")
	bindFlag(v, flags, "database", "server.database")
	bindFlag(v, flags, "interval", "agent.interval")
	bindFlag(v, flags, "stock-interval", "agent.stock_interval")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// bindFlag copies an explicitly set flag value into viper under key
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, flagName, key string) {
	if f := flags.Lookup(flagName); f != nil && f.Changed {
		v.Set(key, f.Value.String())
	}
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Agent.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Agent.Interval)
	}
	if c.Agent.StockInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Agent.StockInterval)
	}

	return nil
}
