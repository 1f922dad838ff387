package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Game id formats
const (
	IDFormatShort = "short"
	IDFormatUUID  = "uuid"
)

// Config holds all configuration for the application
type Config struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"PORT" envDefault:"3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	GameIDFormat    string        `env:"GAME_ID_FORMAT" envDefault:"short"`
	RandomSeed      uint64        `env:"RANDOM_SEED" envDefault:"0"` // 0 = seed from runtime entropy
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that env parsing cannot
func (c *Config) Validate() error {
	c.GameIDFormat = strings.ToLower(strings.TrimSpace(c.GameIDFormat))
	if c.GameIDFormat != IDFormatShort && c.GameIDFormat != IDFormatUUID {
		return fmt.Errorf("invalid GAME_ID_FORMAT value %q: must be %q or %q", c.GameIDFormat, IDFormatShort, IDFormatUUID)
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid LOG_FORMAT value %q: must be console or json", c.LogFormat)
	}

	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT must not be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// BaseURL returns the base URL for this instance
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", c.Host, c.Port)
}
