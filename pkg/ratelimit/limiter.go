package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/http-diskcache/pkg/config"
	"github.com/Sternrassler/http-diskcache/pkg/logging"
)

// ErrWaitCancelled is returned by WaitAsNeeded when the context ends during the wait.
// The returned error also wraps the context error.
var ErrWaitCancelled = errors.New("rate limit wait cancelled")

// Pacer is the part of CallRateLimiter the client middleware depends on.
type Pacer interface {
	WaitAsNeeded(ctx context.Context) error
	ResetLastCallTime()
}

// DefaultName labels the borrowed gauge of a limiter created without a Name.
const DefaultName = "default"

// Config holds the immutable pacing parameters of a limiter.
type Config struct {
	// Name labels this limiter's borrowed gauge. Limiters sharing a name
	// share the gauge. Defaults to DefaultName.
	Name string

	// MinDelay is the minimum interval between the end of one call and the start of the next.
	MinDelay time.Duration

	// MaxRandomBonus bounds the random extra wait, drawn from [0, MaxRandomBonus).
	MaxRandomBonus time.Duration
}

// State is a point-in-time snapshot of a limiter.
type State struct {
	LastCallTime time.Time
	Borrowed     time.Duration
	TotalCalls   int64
}

// CallRateLimiter enforces a minimum interval between outbound calls.
// A single mutex guards the wait decision and the state update so two
// concurrent callers can never both pass on the same free slot.
type CallRateLimiter struct {
	minDelay       time.Duration
	maxRandomBonus time.Duration
	logger         zerolog.Logger
	borrowedGauge  prometheus.Gauge

	mu           sync.Mutex
	lastCallTime time.Time
	borrowed     time.Duration
	totalCalls   int64

	now    func() time.Time
	jitter func(limit time.Duration) time.Duration
}

// New creates a limiter. Negative durations are treated as zero.
func New(cfg Config, logger zerolog.Logger) *CallRateLimiter {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	return &CallRateLimiter{
		minDelay:       max(cfg.MinDelay, 0),
		maxRandomBonus: max(cfg.MaxRandomBonus, 0),
		logger:         logger,
		borrowedGauge:  BorrowedSeconds.WithLabelValues(name),
		now:            time.Now,
		jitter:         randomJitter,
	}
}

// NewFromConfig creates a limiter from the rateLimiter configuration block.
// The Enabled flag is left to the caller.
func NewFromConfig(cfg config.RateLimiterConfig) *CallRateLimiter {
	return New(Config{
		MinDelay:       cfg.MinDelay(),
		MaxRandomBonus: cfg.MaxRandomBonus(),
	}, logging.NewLogger("ratelimit"))
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}

// Borrow adds d to the backlog applied to the next wait. It does not affect a
// wait already in progress. Negative values are ignored.
func (l *CallRateLimiter) Borrow(d time.Duration) {
	l.mu.Lock()
	if d > 0 {
		l.borrowed += d
	}
	l.totalCalls++
	borrowed := l.borrowed
	l.mu.Unlock()

	l.borrowedGauge.Set(borrowed.Seconds())
	l.logger.Debug().Dur("borrowed", borrowed).Msg("Borrowed time for next call")
}

// WaitAsNeeded blocks until at least MinDelay plus the borrowed backlog has
// elapsed since the last call, plus a random bonus when a wait is needed.
// The backlog is only consumed by a call that actually waits.
//
// If ctx ends first, WaitAsNeeded returns an error wrapping ErrWaitCancelled
// and ctx.Err(). The slot reserved for the cancelled wait is kept, so later
// callers never wait less than they would have.
func (l *CallRateLimiter) WaitAsNeeded(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	l.totalCalls++
	needed := l.minDelay + l.borrowed
	elapsed := now.Sub(l.lastCallTime)

	if elapsed >= needed {
		// Claim the slot; borrowed stays until it causes a wait.
		l.lastCallTime = now
		l.mu.Unlock()
		return nil
	}

	wait := needed - elapsed + l.jitter(l.maxRandomBonus)
	l.lastCallTime = now.Add(wait)
	l.borrowed = 0
	l.mu.Unlock()

	l.borrowedGauge.Set(0)
	Waits.Inc()
	l.logger.Info().Dur("wait", wait).Msg("Waiting before next call")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		WaitSeconds.Observe(wait.Seconds())
		return nil
	case <-ctx.Done():
		WaitsCancelled.Inc()
		l.logger.Warn().Err(ctx.Err()).Dur("wait", wait).Msg("Rate limit wait cancelled")
		return fmt.Errorf("%w: %w", ErrWaitCancelled, ctx.Err())
	}
}

// ResetLastCallTime records the end of a real call. A slot already reserved
// by a waiting caller is never moved backwards.
func (l *CallRateLimiter) ResetLastCallTime() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now := l.now(); now.After(l.lastCallTime) {
		l.lastCallTime = now
	}
}

// State returns a snapshot of the limiter state.
func (l *CallRateLimiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return State{
		LastCallTime: l.lastCallTime,
		Borrowed:     l.borrowed,
		TotalCalls:   l.totalCalls,
	}
}

// Config returns the pacing parameters.
func (l *CallRateLimiter) Config() Config {
	return Config{MinDelay: l.minDelay, MaxRandomBonus: l.maxRandomBonus}
}
