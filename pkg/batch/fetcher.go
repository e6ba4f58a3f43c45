package batch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/http-diskcache/pkg/cache"
	"github.com/Sternrassler/http-diskcache/pkg/logging"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	// Misses are still serialized by the client's rate limiter.
	MaxConcurrency int
	// Timeout per request, including the rate limit wait
	Timeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        60 * time.Second,
	}
}

// Doer sends a single request. *client.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one call of a batch.
type Request struct {
	// Method defaults to GET.
	Method string
	URL    string
	// Hint, when set, names the cache entry (see cache.WithHint).
	Hint []string
}

// Result is the outcome of one Request.
type Result struct {
	Index      int
	Request    Request
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// Fetcher runs many requests through one Doer using a worker pool
type Fetcher struct {
	doer   Doer
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a new batch fetcher
func NewFetcher(doer Doer, config Config) *Fetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	return &Fetcher{
		doer:   doer,
		config: config,
		logger: logging.NewLogger("batch"),
	}
}

// FetchAll fetches every request and returns one Result per request, in
// input order. When some requests fail, the successful results are still
// returned together with an error counting the failures.
func (f *Fetcher) FetchAll(ctx context.Context, requests []Request) ([]Result, error) {
	start := time.Now()
	results := make([]Result, len(requests))
	fetched := make([]bool, len(requests))
	for i, req := range requests {
		results[i] = Result{Index: i, Request: req}
	}
	if len(requests) == 0 {
		return results, nil
	}

	f.logger.Info().
		Int("requests", len(requests)).
		Int("workers", f.config.MaxConcurrency).
		Msg("Starting batch fetch")

	queue := make(chan int, len(requests))
	for i := range requests {
		queue <- i
	}
	close(queue)

	done := make(chan Result, len(requests))

	workers := min(f.config.MaxConcurrency, len(requests))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go f.worker(ctx, requests, queue, done, &wg, i)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for result := range done {
		results[result.Index] = result
		fetched[result.Index] = true
		completed++

		if completed%50 == 0 {
			f.logger.Info().
				Int("fetched", completed).
				Int("total", len(requests)).
				Float64("progress_pct", float64(completed)/float64(len(requests))*100).
				Msg("Fetch progress")
		}
	}

	failed := 0
	var firstErr error
	for i := range results {
		// Never picked up because ctx ended
		if !fetched[i] {
			results[i].Err = ctx.Err()
		}
		if results[i].Err != nil {
			failed++
			if firstErr == nil {
				firstErr = results[i].Err
			}
		}
	}

	if failed > 0 {
		f.logger.Warn().
			Err(firstErr).
			Int("failed", failed).
			Int("total", len(requests)).
			Msg("Batch incomplete - returning partial results")
		return results, fmt.Errorf("%d of %d requests failed (partial data): %w", failed, len(requests), firstErr)
	}

	f.logger.Info().
		Int("requests", len(requests)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes requests from the queue
func (f *Fetcher) worker(ctx context.Context, requests []Request, queue <-chan int, done chan<- Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for index := range queue {
		select {
		case <-ctx.Done():
			f.logger.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		result := f.fetch(ctx, index, requests[index])
		if result.Err != nil {
			f.logger.Warn().
				Err(result.Err).
				Int("worker_id", workerID).
				Str("url", result.Request.URL).
				Msg("Request failed")
		}
		done <- result
		processed++
	}

	f.logger.Debug().
		Int("worker_id", workerID).
		Int("processed", processed).
		Msg("Worker completed")
}

func (f *Fetcher) fetch(ctx context.Context, index int, r Request) Result {
	result := Result{Index: index, Request: r}

	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()
	if len(r.Hint) > 0 {
		reqCtx = cache.WithHint(reqCtx, r.Hint...)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(reqCtx, method, r.URL, nil)
	if err != nil {
		result.Err = fmt.Errorf("create request: %w", err)
		return result
	}

	resp, err := f.doer.Do(req)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = fmt.Errorf("read body: %w", err)
		return result
	}

	result.StatusCode = resp.StatusCode
	result.Header = resp.Header
	result.Body = body
	return result
}
