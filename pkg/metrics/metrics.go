// Package metrics holds the Prometheus registry shared by the cache, the
// rate limiter and the client middleware.
//
// Metrics are declared in their owning packages (cache, ratelimit, client)
// with promauto.With(metrics.Registry) so hosts can expose or dump a single
// registry without touching the global default one.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry is the registry every package in this module registers into.
var Registry = prometheus.NewRegistry()

// WriteText gathers the registry and writes it in the Prometheus text
// exposition format.
func WriteText(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - apicache_cache_hits_total{backend} (Counter): entries served from storage
//   - apicache_cache_misses_total{backend} (Counter): lookups with a missing artifact
//   - apicache_cache_stored_bytes_total{backend} (Counter): body bytes persisted
//   - apicache_cache_errors_total{operation} (Counter): lookup/store failures
//
// Rate Limiter Metrics (pkg/ratelimit):
//   - apicache_ratelimit_waits_total (Counter): paced calls that had to sleep
//   - apicache_ratelimit_wait_seconds (Histogram): sleep duration per wait
//   - apicache_ratelimit_wait_cancelled_total (Counter): waits cut short by ctx
//   - apicache_ratelimit_borrowed_seconds (GaugeVec, label limiter): pending borrowed backlog
//
// Request Metrics (pkg/client):
//   - apicache_requests_total{outcome} (Counter): hit, miss, uncached, cache_error, wait_cancelled, upstream_error
//   - apicache_request_duration_seconds{outcome} (Histogram)
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(apicache_cache_hits_total[5m])) /
//	(sum(rate(apicache_cache_hits_total[5m])) + sum(rate(apicache_cache_misses_total[5m])))
//
//	# Average pacing delay
//	rate(apicache_ratelimit_wait_seconds_sum[5m]) / rate(apicache_ratelimit_wait_seconds_count[5m])
