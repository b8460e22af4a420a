package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

// Config holds all application configuration.
type Config struct {
	Sandbox   SandboxConfig
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

// SandboxConfig selects the directory tools are confined to. An empty root
// means the working directory at startup. SearchWorkers sets the walk
// parallelism of search_files; zero uses the fastwalk default.
type SandboxConfig struct {
	Root          string `envconfig:"FSMCP_ROOT"`
	SearchWorkers int    `envconfig:"SEARCH_WORKERS" default:"0"`
}

// ServerConfig holds HTTP transport configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8765"`
	Host           string        `envconfig:"HOST" default:"127.0.0.1"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration. RequestsPerSecond and
// Burst apply per client IP; GlobalRequestsPerSecond caps the whole server
// and is off when zero.
type RateLimitConfig struct {
	RequestsPerSecond       int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst                   int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	GlobalRequestsPerSecond int  `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"0"`
	GlobalBurst             int  `envconfig:"RATE_LIMIT_GLOBAL_BURST" default:"0"`
	Enabled                 bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// GlobalBurstOrDefault returns GlobalBurst, falling back to twice the
// global rate when unset.
func (r RateLimitConfig) GlobalBurstOrDefault() int {
	if r.GlobalBurst > 0 {
		return r.GlobalBurst
	}
	return 2 * r.GlobalRequestsPerSecond
}

// AuditConfig enables the per-call audit log when Path is set.
type AuditConfig struct {
	Path string `envconfig:"AUDIT_LOG"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8765",
			Host:           "127.0.0.1",
			RequestTimeout: 30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Server.RequestTimeout)
	}

	if c.Sandbox.SearchWorkers < 0 {
		return fmt.Errorf("search workers must not be negative, got %d", c.Sandbox.SearchWorkers)
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive rps and burst, got %d/%d",
			c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	}
	if c.RateLimit.GlobalRequestsPerSecond < 0 || c.RateLimit.GlobalBurst < 0 {
		return fmt.Errorf("global rate limit must not be negative, got %d/%d",
			c.RateLimit.GlobalRequestsPerSecond, c.RateLimit.GlobalBurst)
	}
	return nil
}
