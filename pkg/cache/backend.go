package cache

import "context"

// Backend persists the two artifacts of a cache entry.
//
// Load must report ok=false with a nil error when either artifact is absent.
// Save must not return before both artifacts are fully written.
type Backend interface {
	Load(ctx context.Context, key string) (body, headers []byte, ok bool, err error)
	Save(ctx context.Context, key string, body, headers []byte) error
	Name() string
}
