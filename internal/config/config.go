package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every recognized setting. It is built once in main and passed
// to the components that need it.
type Config struct {
	Debug    bool   `env:"DEBUG" envDefault:"false"`
	AppTitle string `env:"APP_TITLE" envDefault:"Accounts"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SecretKey                string `env:"SECRET_KEY,required,notEmpty"`
	Algorithm                string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"60"`

	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	MediaRoot   string `env:"MEDIA_ROOT" envDefault:"media"`

	WorkerCount      int           `env:"WORKER_COUNT" envDefault:"2"`
	JobQueueSize     int           `env:"JOB_QUEUE_SIZE" envDefault:"128"`
	JobMaxAttempts   int           `env:"JOB_MAX_ATTEMPTS" envDefault:"3"`
	JobRetryBackoff  time.Duration `env:"JOB_RETRY_BACKOFF" envDefault:"1s"`
	JobRetryMaxDelay time.Duration `env:"JOB_RETRY_MAX_DELAY" envDefault:"30s"`

	TokenRateLimit float64  `env:"TOKEN_RATE_LIMIT" envDefault:"5"`
	TokenRateBurst int      `env:"TOKEN_RATE_BURST" envDefault:"10"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

var supportedAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Algorithm = strings.ToUpper(strings.TrimSpace(c.Algorithm))
	if !supportedAlgorithms[c.Algorithm] {
		return fmt.Errorf("unsupported ALGORITHM %q, use HS256, HS384 or HS512", c.Algorithm)
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpireMinutes)
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.JobMaxAttempts <= 0 {
		c.JobMaxAttempts = 1
	}
	return nil
}

// TokenTTL is the lifetime of issued access tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// AvatarsDir is the root directory for per-user avatar folders.
func (c *Config) AvatarsDir() string {
	return filepath.Join(c.MediaRoot, "avatars")
}
