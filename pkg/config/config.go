package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all llamagate configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	DefaultModel string        `yaml:"default_model"`
	Channel      string        `yaml:"channel"`
	DBPath       string        `yaml:"db_path"`
	Cache        CacheConfig   `yaml:"cache"`
	Retry        RetryConfig   `yaml:"retry"`
	Timeout      TimeoutConfig `yaml:"timeout"`
	Session      SessionConfig `yaml:"session"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// RetryConfig controls how transient channel failures are retried.
// Backoff is additive: the first retry waits Delay, the second
// Delay+Backoff, the third Delay+2*Backoff.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
	Backoff     time.Duration `yaml:"backoff"`
}

// TimeoutConfig holds per-operation timeouts. Timeouts apply per channel
// call, not across a whole retry sequence.
type TimeoutConfig struct {
	Connection time.Duration `yaml:"connection"`
	Short      time.Duration `yaml:"short"`
	Default    time.Duration `yaml:"default"`
	Generation time.Duration `yaml:"generation"`
	Download   time.Duration `yaml:"download"`
}

// SessionConfig controls conversation sessions.
type SessionConfig struct {
	MaxTurns      int `yaml:"max_turns"`
	ContextBudget int `yaml:"context_budget"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Host:         "localhost",
		Port:         11434,
		DefaultModel: "llama3.2:3b",
		Channel:      "api",
		DBPath:       "llamagate.db",
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       time.Second,
			Backoff:     2 * time.Second,
		},
		Timeout: TimeoutConfig{
			Connection: 2 * time.Second,
			Short:      5 * time.Second,
			Default:    2 * time.Minute,
			Generation: 8 * time.Minute,
			Download:   10 * time.Minute,
		},
		Session: SessionConfig{
			MaxTurns:      20,
			ContextBudget: 2048,
		},
	}
}

// BaseURL returns the runtime API base URL built from host and port.
func (c *Config) BaseURL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
}

// Load reads a YAML config file and expands environment variables.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
