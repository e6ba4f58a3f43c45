// Package config loads the cache, rate limiter and logging settings from
// defaults, an optional YAML, JSON or TOML file and APICACHE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/http-diskcache/pkg/logging"
)

// Config holds every option of the middleware.
type Config struct {
	Cache       CacheConfig       `koanf:"cache"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Logging     LoggingConfig     `koanf:"logging"`
	HTTP        HTTPConfig        `koanf:"http"`
}

// CacheConfig selects and configures the response cache.
type CacheConfig struct {
	Enabled      bool        `koanf:"enabled"`
	Directory    string      `koanf:"directory"`
	Backend      string      `koanf:"backend"`
	ExtraHeaders []string    `koanf:"extraHeaders"`
	Redis        RedisConfig `koanf:"redis"`
}

// RedisConfig is used when cache.backend is "redis" or "valkey".
type RedisConfig struct {
	Address  string `koanf:"address"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// RateLimiterConfig paces outbound calls on cache misses.
type RateLimiterConfig struct {
	Enabled               bool `koanf:"enabled"`
	MinWaitMsBetweenCalls int  `koanf:"minWaitMsBetweenCalls"`
	RandomMsAddition      int  `koanf:"randomMsAddition"`
}

// MinDelay returns the minimum interval between calls.
func (r RateLimiterConfig) MinDelay() time.Duration {
	return time.Duration(r.MinWaitMsBetweenCalls) * time.Millisecond
}

// MaxRandomBonus returns the upper bound (exclusive) of the random extra wait.
func (r RateLimiterConfig) MaxRandomBonus() time.Duration {
	return time.Duration(r.RandomMsAddition) * time.Millisecond
}

// LoggingConfig expresses log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// HTTPConfig configures the wrapped transport.
type HTTPConfig struct {
	UserAgent      string `koanf:"userAgent"`
	TimeoutSeconds int    `koanf:"timeoutSeconds"`
}

// Timeout returns the overall request timeout. Zero disables it.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Cache backends.
const (
	BackendDisk   = "disk"
	BackendRedis  = "redis"
	BackendValkey = "valkey"
)

// Validate ensures the loaded configuration can be used to build a client.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}

	switch strings.ToLower(strings.TrimSpace(c.Cache.Backend)) {
	case "", BackendDisk:
		if c.Cache.Enabled && strings.TrimSpace(c.Cache.Directory) == "" {
			return errors.New("config: cache.directory required for disk backend")
		}
	case BackendRedis, BackendValkey:
		if strings.TrimSpace(c.Cache.Redis.Address) == "" {
			return fmt.Errorf("config: cache.redis.address required for %s backend", strings.ToLower(c.Cache.Backend))
		}
		if c.Cache.Redis.DB < 0 {
			return fmt.Errorf("config: cache.redis.db invalid: %d", c.Cache.Redis.DB)
		}
	default:
		return fmt.Errorf("config: cache.backend unsupported: %s", c.Cache.Backend)
	}

	if c.RateLimiter.MinWaitMsBetweenCalls < 0 {
		return fmt.Errorf("config: rateLimiter.minWaitMsBetweenCalls invalid: %d", c.RateLimiter.MinWaitMsBetweenCalls)
	}
	if c.RateLimiter.RandomMsAddition < 0 {
		return fmt.Errorf("config: rateLimiter.randomMsAddition invalid: %d", c.RateLimiter.RandomMsAddition)
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("config: http.timeoutSeconds invalid: %d", c.HTTP.TimeoutSeconds)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: logging.level: %w", err)
	}
	return nil
}

// DefaultConfig returns the baseline values.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Enabled:      true,
			Directory:    "./api-cache",
			Backend:      BackendDisk,
			ExtraHeaders: []string{},
			Redis: RedisConfig{
				Address: "localhost:6379",
				DB:      0,
				Prefix:  "apicache",
			},
		},
		RateLimiter: RateLimiterConfig{
			Enabled:               true,
			MinWaitMsBetweenCalls: 1000,
			RandomMsAddition:      50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
		HTTP: HTTPConfig{
			UserAgent:      "http-diskcache/1.0",
			TimeoutSeconds: 30,
		},
	}
}
