// Package config loads sitetrack configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	CORSOrigins string `envconfig:"CORS_ORIGINS"`

	// Tracking backend
	APIBaseURL string        `envconfig:"API_BASE_URL" required:"true"`
	APIToken   string        `envconfig:"API_TOKEN"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"30s"`

	// Dashboard aggregation
	FetchConcurrency int `envconfig:"FETCH_CONCURRENCY" default:"4"`

	// Retry policy for per-project detail fetches
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"250ms"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`
}

// AuthEnabled returns true if a backend API token is configured.
func (c *Config) AuthEnabled() bool {
	return c.APIToken != ""
}

// Validate checks invariants envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be >= 1, got %d", c.FetchConcurrency)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1, got %d", c.RetryMaxAttempts)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("SITETRACK", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
