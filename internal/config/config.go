// Package config provides configuration management for the trade journal.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "option-journal/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	MarketData MarketDataConfig `mapstructure:"marketdata"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MarketDataConfig holds third-party finance API configuration.
type MarketDataConfig struct {
	FinnhubAPIKey  string        `mapstructure:"finnhub_api_key"`
	FinnhubBaseURL string        `mapstructure:"finnhub_base_url"`
	YahooBaseURL   string        `mapstructure:"yahoo_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/option-journal"
	}
	return filepath.Join(home, ".config", "option-journal")
}

// Load loads configuration from the specified directory. If configDir
// is empty, the default config directory is used. A missing config file
// is not an error; defaults and environment overrides still apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.path", filepath.Join(configDir, "journal.db"))
	v.SetDefault("marketdata.finnhub_base_url", "https://finnhub.io/api/v1")
	v.SetDefault("marketdata.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("marketdata.timeout", 15*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "journal.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)
}

// applyEnvOverrides lets secrets and deployment settings come from the
// environment without touching config.toml.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		cfg.MarketData.FinnhubAPIKey = key
	}
	if addr := os.Getenv("OPTION_JOURNAL_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path := os.Getenv("OPTION_JOURNAL_DB"); path != "" {
		cfg.Database.Path = path
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "database.path must not be empty")
	}
	if c.MarketData.Timeout <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "marketdata.timeout must be positive")
	}
	return nil
}
