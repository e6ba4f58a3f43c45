// Package batch fetches many requests in parallel through one shared client.
//
// All workers share the client's cache and rate limiter, so hits return
// immediately while misses are spaced by the limiter. Each request may carry
// its own cache hint.
//
// Example usage:
//
//	fetcher := batch.NewFetcher(apiClient, batch.DefaultConfig())
//	results, err := fetcher.FetchAll(ctx, []batch.Request{
//	    {URL: "https://rebrickable.com/api/v3/lego/sets/10497-1/", Hint: []string{"sets", "10497-1"}},
//	    {URL: "https://rebrickable.com/api/v3/lego/sets/42100-1/", Hint: []string{"sets", "42100-1"}},
//	})
//
// The fetcher:
//   - Spawns a worker pool (default 4 workers)
//   - Attaches each request's hint to its own context
//   - Returns results in input order
//   - Handles errors gracefully (returns partial data)
package batch
