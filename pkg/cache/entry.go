package cache

import (
	"bytes"
	"io"
	"net/http"
)

// CacheEntry represents a cached response: body plus the persisted header subset.
type CacheEntry struct {
	// Key is the cache key the entry is stored under
	Key string

	// StatusCode is the HTTP status code; always 200 for entries read back from storage
	StatusCode int

	// Header holds the persisted response headers, one value per name
	Header http.Header

	// Body is the raw response body
	Body []byte
}

// BodyReader returns a fresh reader over the body. It can be called any number of times.
func (e *CacheEntry) BodyReader() io.Reader {
	return bytes.NewReader(e.Body)
}

// Response materializes the entry as an *http.Response for req.
func (e *CacheEntry) Response(req *http.Request) *http.Response {
	return Materialize(req, e.StatusCode, e.Header, e.Body)
}
