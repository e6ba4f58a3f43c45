package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/http-diskcache/pkg/cache"
	"github.com/Sternrassler/http-diskcache/pkg/ratelimit"
)

type countingPacer struct {
	waits  int
	resets int
}

func (p *countingPacer) WaitAsNeeded(context.Context) error {
	p.waits++
	return nil
}

func (p *countingPacer) ResetLastCallTime() {
	p.resets++
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse(req *http.Request, body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{"Content-Type": []string{"text/plain"}, "X-Live": []string{"1"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func TestTransport_Sequencing(t *testing.T) {
	manager, err := cache.NewDiskManager(t.TempDir(), cache.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	pacer := &countingPacer{}
	calls := 0
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if pacer.waits != calls || pacer.resets != calls-1 {
			t.Errorf("call %d: waits = %d, resets = %d", calls, pacer.waits, pacer.resets)
		}
		return okResponse(req, "payload"), nil
	})
	transport := NewTransport(manager, pacer, base, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "http://origin.test/item", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	if resp.StatusCode != http.StatusAccepted || resp.Header.Get("X-Live") != "1" {
		t.Errorf("miss should return live status and headers, got %d %v", resp.StatusCode, resp.Header)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "payload" {
		t.Errorf("body = %q", body)
	}
	if pacer.waits != 1 || pacer.resets != 1 {
		t.Errorf("after miss: waits = %d, resets = %d; want 1, 1", pacer.waits, pacer.resets)
	}

	resp, err = transport.RoundTrip(httptest.NewRequest(http.MethodGet, "http://origin.test/item", nil))
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Live") != "" {
		t.Errorf("hit = %d %v", resp.StatusCode, resp.Header)
	}
	if calls != 1 || pacer.waits != 1 {
		t.Errorf("hit reached base (%d calls) or pacer (%d waits)", calls, pacer.waits)
	}
}

func TestTransport_WithoutCache(t *testing.T) {
	pacer := &countingPacer{}
	upstreamErr := errors.New("reset by peer")
	transport := NewTransport(nil, pacer, roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, upstreamErr
	}), zerolog.Nop())

	_, err := transport.RoundTrip(httptest.NewRequest(http.MethodGet, "http://origin.test/", nil))
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Stage != StageUpstream || !errors.Is(err, upstreamErr) {
		t.Fatalf("RoundTrip() error = %v, want upstream RequestError", err)
	}
	if pacer.waits != 1 || pacer.resets != 1 {
		t.Errorf("waits = %d, resets = %d; want 1, 1", pacer.waits, pacer.resets)
	}
}

func TestTransport_LookupErrorSkipsCall(t *testing.T) {
	manager, err := cache.NewDiskManager(t.TempDir(), cache.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	ctx := cache.WithHint(context.Background(), "bad")
	if err := manager.Backend().Save(ctx, "bad", []byte("x"), []byte("Bad(Name)=1\n")); err != nil {
		t.Fatal(err)
	}

	called := false
	transport := NewTransport(manager, nil, roundTripFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	}), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "http://origin.test/", nil).WithContext(ctx)
	_, err = transport.RoundTrip(req)
	if !errors.Is(err, cache.ErrMalformedHeaders) {
		t.Fatalf("RoundTrip() error = %v, want ErrMalformedHeaders", err)
	}
	if called {
		t.Error("a failed lookup must not fall through to the origin")
	}
}

type closeTrackingBody struct {
	io.Reader
	closed bool
}

func (b *closeTrackingBody) Close() error {
	b.closed = true
	return nil
}

func postWithBody(t *testing.T, ctx context.Context) (*http.Request, *closeTrackingBody) {
	t.Helper()
	body := &closeTrackingBody{Reader: strings.NewReader(`{"query":"sets"}`)}
	req := httptest.NewRequest(http.MethodPost, "http://origin.test/search", nil).WithContext(ctx)
	req.Body = body
	return req, body
}

type cancelledPacer struct{}

func (cancelledPacer) WaitAsNeeded(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ratelimit.ErrWaitCancelled, context.Canceled)
}

func (cancelledPacer) ResetLastCallTime() {}

// Every path closes the request body, including those that skip the origin.
func TestTransport_ClosesRequestBody(t *testing.T) {
	manager, err := cache.NewDiskManager(t.TempDir(), cache.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		req.Body.Close()
		return okResponse(req, "result"), nil
	})
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		transport := NewTransport(manager, nil, base, zerolog.Nop())
		for i := 0; i < 2; i++ {
			req, body := postWithBody(t, ctx)
			resp, err := transport.RoundTrip(req)
			if err != nil {
				t.Fatalf("call %d: RoundTrip() error = %v", i, err)
			}
			resp.Body.Close()
			if !body.closed {
				t.Errorf("call %d: request body left open", i)
			}
		}
	})

	t.Run("cancelled wait", func(t *testing.T) {
		transport := NewTransport(manager, cancelledPacer{}, base, zerolog.Nop())
		req, body := postWithBody(t, cache.WithHint(ctx, "search", "cancelled"))
		if _, err := transport.RoundTrip(req); !errors.Is(err, ratelimit.ErrWaitCancelled) {
			t.Fatalf("RoundTrip() error = %v, want ErrWaitCancelled", err)
		}
		if !body.closed {
			t.Error("request body left open after a cancelled wait")
		}
	})

	t.Run("lookup error", func(t *testing.T) {
		hinted := cache.WithHint(ctx, "search", "broken")
		if err := manager.Backend().Save(ctx, "search/broken", []byte("x"), []byte("Bad(Name)=1\n")); err != nil {
			t.Fatal(err)
		}
		transport := NewTransport(manager, nil, base, zerolog.Nop())
		req, body := postWithBody(t, hinted)
		if _, err := transport.RoundTrip(req); !errors.Is(err, cache.ErrMalformedHeaders) {
			t.Fatalf("RoundTrip() error = %v, want ErrMalformedHeaders", err)
		}
		if !body.closed {
			t.Error("request body left open after a failed lookup")
		}
	})

	t.Run("uncached cancelled wait", func(t *testing.T) {
		transport := NewTransport(nil, cancelledPacer{}, base, zerolog.Nop())
		req, body := postWithBody(t, ctx)
		if _, err := transport.RoundTrip(req); err == nil {
			t.Fatal("RoundTrip() error = nil, want wait error")
		}
		if !body.closed {
			t.Error("request body left open after a cancelled wait")
		}
	})
}
