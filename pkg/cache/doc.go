// Package cache persists whole HTTP responses keyed by request identity.
//
// The manager implements a write-once response cache with the following features:
//
// - Deterministic cache keys: MD5 hex of "METHOD URI", or a caller hint
// - Human-readable keys via a context-scoped hint (see WithHint)
// - Two artifacts per entry: raw body and a properties-style header file
// - Disk backend by default, Redis or Valkey backends with the same artifact format
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create a disk-backed manager (fails fast if the directory cannot be created)
//	manager, err := cache.NewDiskManager("./api-cache")
//	if err != nil {
//		return err
//	}
//
//	key := manager.Key(ctx, req)
//
//	entry, ok, err := manager.Lookup(ctx, key)
//	if err != nil {
//		return err // I/O failure or malformed header artifact
//	}
//	if !ok {
//		// Cache miss - fetch from origin, then Store
//	}
//
// # Hints
//
//	ctx = cache.WithHint(ctx, "orders", "2024")
//	manager.Key(ctx, req) // "orders/2024"
//
// # On-disk Layout
//
// For key K the disk backend writes K-body.json (raw bytes) and
// K-headers.properties (one "name = value" line per persisted header).
// Keys produced from hints may contain "/" and therefore nest directories.
// An entry is only served when both files exist.
//
// Entries never expire and are never rewritten by a hit. Two concurrent
// misses for the same key both write the artifacts; each write replaces the
// file atomically, so the last writer wins and readers see either version.
// The content is expected to be identical for the same key.
//
// Cache hits are materialized with status 200: the status code is not part
// of the persisted artifacts.
//
// # Metrics
//
//   - apicache_cache_hits_total{backend}
//   - apicache_cache_misses_total{backend}
//   - apicache_cache_stored_bytes_total{backend}
//   - apicache_cache_errors_total{operation}
package cache
