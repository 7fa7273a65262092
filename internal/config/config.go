// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads systolink settings from systolink.yaml, SYSTOLINK_*
// environment variables, and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/link"
	"github.com/Thermoquad/systolink/pkg/session"
)

// EnvPrefix prefixes every environment variable, e.g. SYSTOLINK_LINK_PORT.
const EnvPrefix = "SYSTOLINK"

// Config is the complete CLI configuration.
type Config struct {
	Link    LinkConfig    `mapstructure:"link"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LinkConfig selects the channel to the accelerator. The WebSocket password is
// never read from the config file; see SYSTOLINK_PASSWORD.
type LinkConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	URL         string        `mapstructure:"url"`
	Username    string        `mapstructure:"username"`
	NoSSLVerify bool          `mapstructure:"no_ssl_verify"`
	Emulate     bool          `mapstructure:"emulate"`
}

// SessionConfig holds protocol timing.
type SessionConfig struct {
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ResultsTimeout time.Duration `mapstructure:"results_timeout"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	MaxWait        time.Duration `mapstructure:"max_wait"`
	FlushInput     bool          `mapstructure:"flush_input"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Link defaults
	v.SetDefault("link.port", "")
	v.SetDefault("link.baud_rate", link.DefaultBaudRate)
	v.SetDefault("link.read_timeout", link.DefaultReadTimeout)
	v.SetDefault("link.url", "")
	v.SetDefault("link.username", "")
	v.SetDefault("link.no_ssl_verify", false)
	v.SetDefault("link.emulate", false)

	// Session defaults
	v.SetDefault("session.probe_timeout", session.DefaultProbeTimeout)
	v.SetDefault("session.poll_interval", session.DefaultPollInterval)
	v.SetDefault("session.results_timeout", link.DefaultReadTimeout)
	v.SetDefault("session.settle_delay", "2s")
	v.SetDefault("session.max_wait", "30s")
	v.SetDefault("session.flush_input", true)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"port":            "link.port",
	"baud":            "link.baud_rate",
	"read-timeout":    "link.read_timeout",
	"url":             "link.url",
	"username":        "link.username",
	"no-ssl-verify":   "link.no_ssl_verify",
	"emulate":         "link.emulate",
	"probe-timeout":   "session.probe_timeout",
	"poll-interval":   "session.poll_interval",
	"results-timeout": "session.results_timeout",
	"settle-delay":    "session.settle_delay",
	"max-wait":        "session.max_wait",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"log-output":      "logging.output",
}

// BindFlags binds every known flag present in fs. Flags override environment
// and file values only when set on the command line.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// DefaultSearchPaths returns the directories searched for systolink.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "systolink"))
	}
	return paths
}

// Load reads configuration. An explicit configFile must exist; otherwise
// systolink.yaml is looked up in searchPaths and may be absent.
func Load(v *viper.Viper, configFile string, searchPaths ...string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("systolink")
		v.SetConfigType("yaml")
		if len(searchPaths) == 0 {
			searchPaths = DefaultSearchPaths()
		}
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Link.BaudRate <= 0 {
		return fmt.Errorf("link.baud_rate must be positive, got %d", cfg.Link.BaudRate)
	}
	if cfg.Link.ReadTimeout <= 0 {
		return fmt.Errorf("link.read_timeout must be positive")
	}
	if cfg.Session.PollInterval <= 0 {
		return fmt.Errorf("session.poll_interval must be positive")
	}
	if cfg.Session.MaxWait <= 0 {
		return fmt.Errorf("session.max_wait must be positive")
	}
	if cfg.Session.SettleDelay < 0 {
		return fmt.Errorf("session.settle_delay must not be negative")
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	validFormats := []string{"json", "console"}
	if !slices.Contains(validFormats, cfg.Logging.Format) {
		return fmt.Errorf("logging.format must be one of: %v", validFormats)
	}

	return nil
}

// LinkConfig returns the link settings with the given password.
func (c *Config) LinkConfig(password string) link.Config {
	return link.Config{
		Port:        c.Link.Port,
		BaudRate:    c.Link.BaudRate,
		ReadTimeout: c.Link.ReadTimeout,
		URL:         c.Link.URL,
		Username:    c.Link.Username,
		Password:    password,
		NoSSLVerify: c.Link.NoSSLVerify,
	}
}

// SessionOptions returns the session options the configuration describes.
func (c *Config) SessionOptions(logger *zap.Logger) []session.Option {
	return []session.Option{
		session.WithLogger(logger),
		session.WithReadTimeout(c.Link.ReadTimeout),
		session.WithProbeTimeout(c.Session.ProbeTimeout),
		session.WithPollInterval(c.Session.PollInterval),
		session.WithResultsTimeout(c.Session.ResultsTimeout),
		session.WithSettleDelay(c.Session.SettleDelay),
		session.WithFlushInput(c.Session.FlushInput),
	}
}
