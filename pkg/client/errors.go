package client

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/http-diskcache/pkg/ratelimit"
)

// Stage names the step of a round trip that failed.
type Stage string

const (
	// StageLookup is the cache read before the call.
	StageLookup Stage = "lookup"

	// StageWait is the rate limiter wait on a cache miss.
	StageWait Stage = "wait"

	// StageUpstream is the real call through the wrapped transport.
	StageUpstream Stage = "upstream"

	// StageReadBody is reading the live response body.
	StageReadBody Stage = "read_body"

	// StageStore is the cache write after the call.
	StageStore Stage = "store"
)

// RequestError reports a failed round trip with the stage it failed in.
type RequestError struct {
	Stage  Stage
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Stage, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Outcome classifies a round trip for metrics.
type Outcome string

const (
	OutcomeHit           Outcome = "hit"
	OutcomeMiss          Outcome = "miss"
	OutcomeUncached      Outcome = "uncached"
	OutcomeCacheError    Outcome = "cache_error"
	OutcomeWaitCancelled Outcome = "wait_cancelled"
	OutcomeUpstreamError Outcome = "upstream_error"
)

// classifyError maps a round trip error to an Outcome.
func classifyError(err error) Outcome {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return OutcomeUpstreamError
	}

	switch reqErr.Stage {
	case StageLookup, StageStore:
		return OutcomeCacheError
	case StageWait:
		if errors.Is(err, ratelimit.ErrWaitCancelled) {
			return OutcomeWaitCancelled
		}
		return OutcomeUpstreamError
	default:
		return OutcomeUpstreamError
	}
}
