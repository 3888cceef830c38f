package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	UpstreamBaseURL string        `mapstructure:"UPSTREAM_BASE_URL"`
	UpstreamTimeout time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	APIPrefix       string        `mapstructure:"API_PREFIX"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`

	PollInterval    time.Duration `mapstructure:"POLL_INTERVAL"`
	PollMaxAttempts int           `mapstructure:"POLL_MAX_ATTEMPTS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	SubmitRateLimit  int           `mapstructure:"SUBMIT_RATE_LIMIT"`
	SubmitRateWindow time.Duration `mapstructure:"SUBMIT_RATE_WINDOW"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Missing file is fine, production config comes from the environment.
	_ = v.ReadInConfig()

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:8000")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("POLL_INTERVAL", "1s")
	v.SetDefault("POLL_MAX_ATTEMPTS", 60)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SUBMIT_RATE_LIMIT", 10)
	v.SetDefault("SUBMIT_RATE_WINDOW", "1m")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.UpstreamBaseURL = strings.TrimRight(cfg.UpstreamBaseURL, "/")
	cfg.APIPrefix = "/" + strings.Trim(cfg.APIPrefix, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the poller and proxy cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL must be an absolute http(s) URL, got %q", c.UpstreamBaseURL)
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	if c.PollMaxAttempts <= 0 {
		return errors.New("POLL_MAX_ATTEMPTS must be positive")
	}
	if c.RateLimitEnabled() && (c.SubmitRateLimit <= 0 || c.SubmitRateWindow <= 0) {
		return errors.New("SUBMIT_RATE_LIMIT and SUBMIT_RATE_WINDOW must be positive when REDIS_ADDR is set")
	}
	return nil
}

// RateLimitEnabled reports whether submissions go through the Redis limiter.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisAddr != ""
}
