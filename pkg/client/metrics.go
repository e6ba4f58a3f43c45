package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/http-diskcache/pkg/metrics"
)

// Prometheus metrics for middleware round trips.
var (
	requestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "apicache_requests_total",
		Help: "Total round trips by outcome",
	}, []string{"outcome"})

	requestDuration = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apicache_request_duration_seconds",
		Help:    "Round trip duration in seconds by outcome, including rate limit waits",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"outcome"})
)
