package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Artifact name suffixes appended to a cache key.
const (
	BodySuffix    = "-body.json"
	HeadersSuffix = "-headers.properties"
)

// DigestKey generates the deterministic key for a request without a hint.
// Format: hex(md5(METHOD + " " + URI))
//
// Example:
//
//	DigestKey("GET", "http://example.com/api/data")
func DigestKey(method, uri string) string {
	if method == "" {
		method = http.MethodGet
	}
	sum := md5.Sum([]byte(method + " " + uri))
	return hex.EncodeToString(sum[:])
}

// KeyFor derives the cache key for req: the context hint when present,
// otherwise the digest of method and URI.
func KeyFor(ctx context.Context, req *http.Request) string {
	if hint, ok := HintFromContext(ctx); ok {
		return hint
	}
	return DigestKey(req.Method, req.URL.String())
}

// ValidateKey rejects keys that are empty, absolute, contain NUL or
// backslashes, or have "." or ".." segments. Digest keys and sanitized hints
// always pass.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	case strings.ContainsAny(key, "\\\x00"):
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidKey, key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q has a relative segment", ErrInvalidKey, key)
		}
	}
	return nil
}
