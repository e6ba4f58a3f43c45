package ratelimit

import (
	"net/http"
)

// Transport paces every request through a Pacer without any caching.
// It waits, performs the call and records its end, even when the call fails.
type Transport struct {
	Pacer Pacer

	// Base is the wrapped transport. http.DefaultTransport is used when nil.
	Base http.RoundTripper
}

// NewTransport wraps base with pacer.
func NewTransport(pacer Pacer, base http.RoundTripper) *Transport {
	return &Transport{Pacer: pacer, Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Pacer.WaitAsNeeded(req.Context()); err != nil {
		// Base never sees the request, so its body is ours to close
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	defer t.Pacer.ResetLastCallTime()

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
