package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRefreshInterval = "5s"
	DefaultUserAgent       = "gerrit-top"
)

type Config struct {
	RefreshInterval time.Duration `yaml:"-"`
	RawInterval     string        `yaml:"refresh_interval"`
	UserAgent       string        `yaml:"user_agent"`
	LogFile         string        `yaml:"log_file"`
	Log             LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	var cfg Config
	// Defaults alone always parse.
	_ = cfg.setDefaults()
	return &cfg
}

// Load reads a YAML config file. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() error {
	if c.RawInterval == "" {
		c.RawInterval = DefaultRefreshInterval
	}
	d, err := time.ParseDuration(c.RawInterval)
	if err != nil {
		return fmt.Errorf("parse refresh_interval %q: %w", c.RawInterval, err)
	}
	c.RefreshInterval = d

	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(os.TempDir(), "gerrit-top", "gerrit-top.log")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return nil
}

func (c *Config) validate() error {
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", c.RawInterval)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}
	return nil
}
