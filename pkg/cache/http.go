package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/magiconair/properties"
)

// DefaultPersistedHeaders are always written to the header artifact when present.
var DefaultPersistedHeaders = []string{"Content-Type", "Content-Length"}

const headersComment = "# Cached response headers\n"

// encodeHeaders renders the persisted subset of h as a properties document.
// Multi-valued headers keep their first value only.
func encodeHeaders(h http.Header, names []string) ([]byte, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true

	for _, name := range names {
		value := h.Get(name)
		if value == "" {
			continue
		}
		if _, _, err := p.Set(http.CanonicalHeaderKey(name), value); err != nil {
			return nil, fmt.Errorf("encode header %s: %w", name, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(headersComment)
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeHeaders parses a header artifact. Any parse failure or invalid header
// name fails the whole artifact; partial headers are never returned.
func decodeHeaders(data []byte) (http.Header, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeaders, err)
	}

	h := make(http.Header, p.Len())
	for _, key := range p.Keys() {
		if !validHeaderName(key) {
			return nil, fmt.Errorf("%w: invalid header name %q", ErrMalformedHeaders, key)
		}
		value, _ := p.Get(key)
		h.Set(key, value)
	}
	return h, nil
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsFunc(name, func(r rune) bool {
		return r <= ' ' || r >= 0x7f || strings.ContainsRune(`"(),/:;<=>?@[\]{}`, r)
	})
}

// Materialize wraps status, headers and body into an *http.Response that
// callers cannot tell apart from a live one. The header map is copied.
func Materialize(req *http.Request, statusCode int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	if body == nil {
		body = []byte{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
