// Package config loads cclens settings from ~/.cclens/config.yaml and
// CCLENS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Logs    LogsConfig    `mapstructure:"logs"`
	Server  ServerConfig  `mapstructure:"server"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Plan is the subscription tier used for window budgets: pro, max5x,
	// max20x or custom.
	Plan string `mapstructure:"plan"`
	// Timezone for calendar bucketing; empty means local.
	Timezone string `mapstructure:"timezone"`
}

type LogsConfig struct {
	Roots []string `mapstructure:"roots"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
	DBPath string `mapstructure:"db_path"`
}

type PricingConfig struct {
	// Offline disables the online price fetch; the embedded table (plus
	// RatesFile, if set) is used instead.
	Offline   bool   `mapstructure:"offline"`
	RatesFile string `mapstructure:"rates_file"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Dir returns the cclens state directory, ~/.cclens.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cclens"
	}
	return filepath.Join(home, ".cclens")
}

func defaultLogRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", "projects")
	}
	return filepath.Join(home, ".claude", "projects")
}

// Load reads configuration. path overrides the default config file location;
// a missing config file is fine, defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("logs.roots", []string{defaultLogRoot()})
	v.SetDefault("server.listen", ":7887")
	v.SetDefault("server.db_path", filepath.Join(Dir(), "cclens.db"))
	v.SetDefault("pricing.offline", true)
	v.SetDefault("pricing.rates_file", "")
	v.SetDefault("plan", "custom")
	v.SetDefault("timezone", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix("CCLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Location resolves the reporting timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewLogger builds the process logger from the logging section.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Logging.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
