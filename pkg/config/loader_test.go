package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	return writeConfigAs(t, "apicache.yaml", contents)
}

func writeConfigAs(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func requireDefaults(t *testing.T, cfg Config) {
	t.Helper()
	want := DefaultConfig()
	require.Equal(t, want.Cache.Enabled, cfg.Cache.Enabled)
	require.Equal(t, want.Cache.Directory, cfg.Cache.Directory)
	require.Equal(t, want.Cache.Backend, cfg.Cache.Backend)
	require.Empty(t, cfg.Cache.ExtraHeaders)
	require.Equal(t, want.Cache.Redis, cfg.Cache.Redis)
	require.Equal(t, want.RateLimiter, cfg.RateLimiter)
	require.Equal(t, want.Logging, cfg.Logging)
	require.Equal(t, want.HTTP, cfg.HTTP)
}

func TestLoader(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) []string
		wantErr bool
		assert  func(t *testing.T, cfg Config)
	}{
		{
			name:  "returns defaults when no overrides",
			setup: func(t *testing.T) []string { return nil },
			assert: func(t *testing.T, cfg Config) {
				requireDefaults(t, cfg)
				require.Equal(t, time.Second, cfg.RateLimiter.MinDelay())
				require.Equal(t, 50*time.Millisecond, cfg.RateLimiter.MaxRandomBonus())
			},
		},
		{
			name: "merges file overrides",
			setup: func(t *testing.T) []string {
				return []string{writeConfig(t, "cache:\n  directory: /var/cache/api\n  extraHeaders: [ETag, Link]\nrateLimiter:\n  minWaitMsBetweenCalls: 250\n")}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, "/var/cache/api", cfg.Cache.Directory)
				require.Equal(t, []string{"ETag", "Link"}, cfg.Cache.ExtraHeaders)
				require.Equal(t, 250, cfg.RateLimiter.MinWaitMsBetweenCalls)
				require.Equal(t, 50, cfg.RateLimiter.RandomMsAddition)
				require.True(t, cfg.Cache.Enabled)
			},
		},
		{
			name: "prefers env overrides",
			setup: func(t *testing.T) []string {
				path := writeConfig(t, "rateLimiter:\n  minWaitMsBetweenCalls: 250\n")
				t.Setenv("APICACHE_RATELIMITER__MINWAITMSBETWEENCALLS", "400")
				t.Setenv("APICACHE_RATELIMITER__ENABLED", "false")
				t.Setenv("APICACHE_CACHE__REDIS__ADDRESS", "redis:6380")
				t.Setenv("APICACHE_CACHE__EXTRAHEADERS", "ETag, X-Ratelimit-Remaining")
				return []string{path}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, 400, cfg.RateLimiter.MinWaitMsBetweenCalls)
				require.False(t, cfg.RateLimiter.Enabled)
				require.Equal(t, "redis:6380", cfg.Cache.Redis.Address)
				require.Equal(t, []string{"ETag", "X-Ratelimit-Remaining"}, cfg.Cache.ExtraHeaders)
			},
		},
		{
			name: "ignores unknown env keys",
			setup: func(t *testing.T) []string {
				t.Setenv("APICACHE_NOT__A__KEY", "x")
				return nil
			},
			assert: func(t *testing.T, cfg Config) {
				requireDefaults(t, cfg)
			},
		},
		{
			name: "missing file",
			setup: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "missing.yaml")}
			},
			wantErr: true,
		},
		{
			name: "invalid yaml",
			setup: func(t *testing.T) []string {
				return []string{writeConfig(t, "cache: [\n")}
			},
			wantErr: true,
		},
		{
			name: "validation failure",
			setup: func(t *testing.T) []string {
				return []string{writeConfig(t, "cache:\n  backend: memcached\n")}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := tt.setup(t)
			cfg, err := NewLoader(DefaultEnvPrefix, files...).Load(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.assert != nil {
				tt.assert(t, cfg)
			}
		})
	}
}

func TestLoaderHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader("", writeConfig(t, "logging:\n  level: debug\n")).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoaderSkipsEmptyPath(t *testing.T) {
	cfg, err := NewLoader("", "").Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "./api-cache", cfg.Cache.Directory)
}

func TestLoaderFileFormats(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{
			name:     "json",
			file:     "apicache.json",
			contents: `{"cache": {"backend": "redis", "redis": {"address": "cache:6379", "db": 2}}, "rateLimiter": {"minWaitMsBetweenCalls": 400}}`,
		},
		{
			name:     "toml",
			file:     "apicache.toml",
			contents: "[cache]\nbackend = \"redis\"\n\n[cache.redis]\naddress = \"cache:6379\"\ndb = 2\n\n[rateLimiter]\nminWaitMsBetweenCalls = 400\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewLoader("", writeConfigAs(t, tt.file, tt.contents)).Load(context.Background())
			require.NoError(t, err)
			require.Equal(t, BackendRedis, cfg.Cache.Backend)
			require.Equal(t, "cache:6379", cfg.Cache.Redis.Address)
			require.Equal(t, 2, cfg.Cache.Redis.DB)
			require.Equal(t, "apicache", cfg.Cache.Redis.Prefix)
			require.Equal(t, 400, cfg.RateLimiter.MinWaitMsBetweenCalls)
		})
	}
}

func TestLoaderRejectsUnknownExtension(t *testing.T) {
	_, err := NewLoader("", writeConfigAs(t, "apicache.ini", "level=debug\n")).Load(context.Background())
	require.ErrorContains(t, err, "unsupported file extension")
}
