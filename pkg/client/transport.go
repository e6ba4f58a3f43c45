package client

import (
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/http-diskcache/pkg/cache"
	"github.com/Sternrassler/http-diskcache/pkg/ratelimit"
)

// Transport is an http.RoundTripper that answers from the response cache
// and paces the calls that miss it.
//
// Per request:
//  1. derive the cache key (hint from the request context, else a digest)
//  2. on a hit, return the cached response; neither the pacer nor the
//     network is touched
//  3. on a miss, wait for the pacer, perform the real call, read the whole
//     body, store it, record the end of the call and return the live
//     status and headers with a re-readable body
//
// Cache and Pacer are both optional.
type Transport struct {
	Cache *cache.Manager
	Pacer ratelimit.Pacer

	// Base performs the real calls. http.DefaultTransport is used when nil.
	Base http.RoundTripper

	logger zerolog.Logger
}

// NewTransport creates a caching, pacing transport around base.
func NewTransport(manager *cache.Manager, pacer ratelimit.Pacer, base http.RoundTripper, logger zerolog.Logger) *Transport {
	return &Transport{
		Cache:  manager,
		Pacer:  pacer,
		Base:   base,
		logger: logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	resp, outcome, err := t.roundTrip(req)
	if err != nil {
		outcome = classifyError(err)
	}
	requestsTotal.WithLabelValues(string(outcome)).Inc()
	requestDuration.WithLabelValues(string(outcome)).Observe(time.Since(startTime).Seconds())

	return resp, err
}

func (t *Transport) roundTrip(req *http.Request) (*http.Response, Outcome, error) {
	ctx := req.Context()

	if t.Cache == nil {
		resp, err := t.call(req)
		return resp, OutcomeUncached, err
	}

	key := t.Cache.Key(ctx, req)
	entry, ok, err := t.Cache.Lookup(ctx, key)
	if err != nil {
		closeRequestBody(req)
		return nil, "", t.fail(req, StageLookup, err)
	}
	if ok {
		closeRequestBody(req)
		t.logger.Info().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("cache_key", key).
			Msg("Cache HIT")
		return entry.Response(req), OutcomeHit, nil
	}

	t.logger.Info().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("cache_key", key).
		Msg("Cache MISS")

	if t.Pacer != nil {
		if err := t.Pacer.WaitAsNeeded(ctx); err != nil {
			closeRequestBody(req)
			return nil, "", t.fail(req, StageWait, err)
		}
		defer t.Pacer.ResetLastCallTime()
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, "", t.fail(req, StageUpstream, err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, "", t.fail(req, StageReadBody, err)
	}

	if err := t.Cache.Store(ctx, key, resp.StatusCode, resp.Header, body); err != nil {
		return nil, "", t.fail(req, StageStore, err)
	}

	return cache.Materialize(req, resp.StatusCode, resp.Header, body), OutcomeMiss, nil
}

// call performs a paced request without caching.
func (t *Transport) call(req *http.Request) (*http.Response, error) {
	if t.Pacer != nil {
		if err := t.Pacer.WaitAsNeeded(req.Context()); err != nil {
			closeRequestBody(req)
			return nil, t.fail(req, StageWait, err)
		}
		defer t.Pacer.ResetLastCallTime()
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, t.fail(req, StageUpstream, err)
	}
	return resp, nil
}

// closeRequestBody closes req.Body on paths that never reach Base, which
// would otherwise own it.
func closeRequestBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) fail(req *http.Request, stage Stage, err error) error {
	event := t.logger.Error()
	if stage == StageWait {
		event = t.logger.Warn()
	}
	event.Err(err).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("stage", string(stage)).
		Msg("Request failed")

	return &RequestError{
		Stage:  stage,
		Method: req.Method,
		URL:    req.URL.String(),
		Err:    err,
	}
}
