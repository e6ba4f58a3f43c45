// Package client wires the response cache and the call rate limiter into an
// http.Client.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	valkey "github.com/valkey-io/valkey-go"

	"github.com/Sternrassler/http-diskcache/pkg/cache"
	"github.com/Sternrassler/http-diskcache/pkg/config"
	"github.com/Sternrassler/http-diskcache/pkg/logging"
	"github.com/Sternrassler/http-diskcache/pkg/ratelimit"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "http-diskcache/1.0"

// redisPingTimeout bounds the Redis or Valkey connectivity check made by NewFromConfig.
const redisPingTimeout = 5 * time.Second

// Client is an HTTP client whose requests go through the cache and the limiter.
type Client struct {
	httpClient *http.Client
	transport  *Transport
	limiter    *ratelimit.CallRateLimiter
	config     Config
	logger     zerolog.Logger

	// closeBackend releases the Redis or Valkey connection, if any
	closeBackend func() error
}

// Config holds the client configuration.
type Config struct {
	// Cache serves and stores responses. Nil disables caching.
	Cache *cache.Manager

	// Limiter paces calls that miss the cache. Nil disables pacing.
	Limiter *ratelimit.CallRateLimiter

	// Base performs the real calls (default: http.DefaultTransport).
	Base http.RoundTripper

	// UserAgent is set on requests that carry none.
	UserAgent string

	// Timeout bounds a whole request including rate limit waits. Zero disables it.
	Timeout time.Duration

	// Logger for the middleware (default: component logger "client").
	Logger *zerolog.Logger
}

// New creates a client from explicit components.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	logger := logging.NewLogger("client")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	// A nil *CallRateLimiter must not become a non-nil Pacer
	var pacer ratelimit.Pacer
	if cfg.Limiter != nil {
		pacer = cfg.Limiter
	}

	transport := NewTransport(cfg.Cache, pacer, cfg.Base, logger)

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport: transport,
		limiter:   cfg.Limiter,
		config:    cfg,
		logger:    logger,
	}, nil
}

// NewFromConfig builds the cache backend and the limiter described by cfg.
// Backend construction failures, including an unreachable Redis or Valkey
// server, wrap cache.ErrConfiguration.
func NewFromConfig(ctx context.Context, cfg config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", cache.ErrConfiguration, err)
	}

	var (
		manager      *cache.Manager
		closeBackend func() error
	)
	if cfg.Cache.Enabled {
		backend, closer, err := newBackend(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		closeBackend = closer
		manager = cache.NewManager(backend,
			cache.WithPersistedHeaders(cfg.Cache.ExtraHeaders...),
			cache.WithLogger(logging.NewLogger("cache")),
		)
	}

	var limiter *ratelimit.CallRateLimiter
	if cfg.RateLimiter.Enabled {
		limiter = ratelimit.NewFromConfig(cfg.RateLimiter)
	}

	c, err := New(Config{
		Cache:     manager,
		Limiter:   limiter,
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout(),
	})
	if err != nil {
		if closeBackend != nil {
			closeBackend()
		}
		return nil, err
	}
	c.closeBackend = closeBackend

	c.logger.Info().
		Bool("cache", cfg.Cache.Enabled).
		Str("backend", cfg.Cache.Backend).
		Bool("rate_limiter", cfg.RateLimiter.Enabled).
		Int("min_wait_ms", cfg.RateLimiter.MinWaitMsBetweenCalls).
		Msg("Client configured")

	return c, nil
}

// newBackend opens the configured store. The returned closer is nil for disk.
func newBackend(ctx context.Context, cfg config.CacheConfig) (cache.Backend, func() error, error) {
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("%w: redis %s unreachable: %w", cache.ErrConfiguration, cfg.Redis.Address, err)
		}
		backend, err := cache.NewRedisBackend(redisClient, cfg.Redis.Prefix)
		if err != nil {
			redisClient.Close()
			return nil, nil, err
		}
		return backend, redisClient.Close, nil

	case config.BackendValkey:
		valkeyClient, err := valkey.NewClient(valkey.ClientOption{
			InitAddress:       []string{cfg.Redis.Address},
			Username:          cfg.Redis.Username,
			Password:          cfg.Redis.Password,
			SelectDB:          cfg.Redis.DB,
			AlwaysRESP2:       true,
			ForceSingleClient: true,
			DisableCache:      true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: valkey %s unreachable: %w", cache.ErrConfiguration, cfg.Redis.Address, err)
		}
		if err := valkeyClient.Do(pingCtx, valkeyClient.B().Ping().Build()).Error(); err != nil {
			valkeyClient.Close()
			return nil, nil, fmt.Errorf("%w: valkey %s ping: %w", cache.ErrConfiguration, cfg.Redis.Address, err)
		}
		backend, err := cache.NewValkeyBackend(valkeyClient, cfg.Redis.Prefix)
		if err != nil {
			valkeyClient.Close()
			return nil, nil, err
		}
		return backend, func() error { valkeyClient.Close(); return nil }, nil

	default:
		backend, err := cache.NewDiskBackend(cfg.Directory)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	}
}

// Do sends a request through the cache and the limiter.
// Cache hints are read from the request context (see cache.WithHint).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	return c.httpClient.Do(req)
}

// Get performs a GET request for url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Cache returns the cache manager, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.transport.Cache
}

// Limiter returns the rate limiter, or nil when pacing is disabled.
func (c *Client) Limiter() *ratelimit.CallRateLimiter {
	return c.limiter
}

// Close releases the store connection opened by NewFromConfig.
func (c *Client) Close() error {
	if c.closeBackend != nil {
		return c.closeBackend()
	}
	return nil
}
