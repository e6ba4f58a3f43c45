package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces artifact keys in Redis.
const DefaultRedisPrefix = "apicache"

// RedisBackend stores the two artifacts as two Redis string keys:
// <prefix>:<key>-body.json and <prefix>:<key>-headers.properties.
// Keys are written without TTL.
type RedisBackend struct {
	redis  *redis.Client
	prefix string
}

// NewRedisBackend creates a Redis backend. A nil client wraps ErrConfiguration.
func NewRedisBackend(redisClient *redis.Client, prefix string) (*RedisBackend, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrConfiguration)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{redis: redisClient, prefix: prefix}, nil
}

// Name implements Backend.
func (r *RedisBackend) Name() string {
	return "redis"
}

func (r *RedisBackend) keys(key string) (bodyKey, headersKey string) {
	base := r.prefix + ":" + key
	return base + BodySuffix, base + HeadersSuffix
}

// Load implements Backend. Both keys are fetched in one MGET.
func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, []byte, bool, error) {
	bodyKey, headersKey := r.keys(key)

	vals, err := r.redis.MGet(ctx, bodyKey, headersKey).Result()
	if err != nil {
		return nil, nil, false, fmt.Errorf("redis mget: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, nil, false, nil
	}

	body, ok := vals[0].(string)
	if !ok {
		return nil, nil, false, fmt.Errorf("redis mget: unexpected body type %T", vals[0])
	}
	headers, ok := vals[1].(string)
	if !ok {
		return nil, nil, false, fmt.Errorf("redis mget: unexpected headers type %T", vals[1])
	}

	return []byte(body), []byte(headers), true, nil
}

// Save implements Backend. Both keys are written in one MULTI/EXEC.
func (r *RedisBackend) Save(ctx context.Context, key string, body, headers []byte) error {
	bodyKey, headersKey := r.keys(key)

	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, bodyKey, body, 0)
		pipe.Set(ctx, headersKey, headers, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
