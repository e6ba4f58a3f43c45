package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/http-diskcache/pkg/metrics"
)

// Prometheus metrics for call pacing.
var (
	Waits = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "apicache_ratelimit_waits_total",
		Help: "Total number of calls that had to wait before reaching the origin",
	})

	WaitSeconds = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "apicache_ratelimit_wait_seconds",
		Help:    "Time spent waiting for the next call slot",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	WaitsCancelled = promauto.With(metrics.Registry).NewCounter(prometheus.CounterOpts{
		Name: "apicache_ratelimit_wait_cancelled_total",
		Help: "Total number of waits aborted by context cancellation",
	})

	BorrowedSeconds = promauto.With(metrics.Registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "apicache_ratelimit_borrowed_seconds",
		Help: "Backlog added to the next wait via Borrow, per limiter",
	}, []string{"limiter"})
)
