package cache

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/http-diskcache/pkg/logging"
)

// Manager derives cache keys and reads/writes entries through a Backend.
type Manager struct {
	backend   Backend
	persisted []string
	logger    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithPersistedHeaders adds header names to persist next to
// DefaultPersistedHeaders.
func WithPersistedHeaders(names ...string) Option {
	return func(m *Manager) {
		for _, name := range names {
			name = http.CanonicalHeaderKey(name)
			if name == "" || containsHeader(m.persisted, name) {
				continue
			}
			m.persisted = append(m.persisted, name)
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new cache manager on top of backend.
func NewManager(backend Backend, opts ...Option) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	m := &Manager{
		backend:   backend,
		persisted: append([]string(nil), DefaultPersistedHeaders...),
		logger:    logging.NewLogger("cache"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("backend", backend.Name()).Logger()
	return m
}

// NewDiskManager creates a manager backed by files below dir.
// The directory is created up front; failure wraps ErrConfiguration.
func NewDiskManager(dir string, opts ...Option) (*Manager, error) {
	backend, err := NewDiskBackend(dir)
	if err != nil {
		return nil, err
	}
	return NewManager(backend, opts...), nil
}

// Backend returns the storage backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// PersistedHeaders returns the header names written to the header artifact.
func (m *Manager) PersistedHeaders() []string {
	return append([]string(nil), m.persisted...)
}

// Key derives the cache key for req using the hint carried by ctx, if any.
func (m *Manager) Key(ctx context.Context, req *http.Request) string {
	key := KeyFor(ctx, req)
	_, hinted := HintFromContext(ctx)
	m.logger.Debug().
		Str("cache_key", key).
		Bool("hinted", hinted).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Derived cache key")
	return key
}

// Lookup reads the entry stored under key.
// Absence of either artifact is a miss (nil, false, nil), never an error.
// Invalid keys, read failures and malformed header artifacts return an *Error.
func (m *Manager) Lookup(ctx context.Context, key string) (*CacheEntry, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, &Error{Op: "lookup", Key: key, Err: err}
	}
	body, rawHeaders, ok, err := m.backend.Load(ctx, key)
	if err != nil {
		CacheErrors.WithLabelValues("lookup").Inc()
		m.logger.Error().Err(err).Str("cache_key", key).Msg("Cache lookup failed")
		return nil, false, &Error{Op: "lookup", Key: key, Err: err}
	}
	if !ok {
		CacheMisses.WithLabelValues(m.backend.Name()).Inc()
		return nil, false, nil
	}

	header, err := decodeHeaders(rawHeaders)
	if err != nil {
		CacheErrors.WithLabelValues("lookup").Inc()
		m.logger.Error().Err(err).Str("cache_key", key).Msg("Cached headers unreadable")
		return nil, false, &Error{Op: "lookup", Key: key, Err: err}
	}

	CacheHits.WithLabelValues(m.backend.Name()).Inc()

	return &CacheEntry{
		Key:        key,
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       body,
	}, true, nil
}

// Store persists body and the filtered header set under key.
// The status code is logged but not persisted.
func (m *Manager) Store(ctx context.Context, key string, statusCode int, header http.Header, body []byte) error {
	if err := ValidateKey(key); err != nil {
		return &Error{Op: "store", Key: key, Err: err}
	}
	rawHeaders, err := encodeHeaders(header, m.persisted)
	if err != nil {
		CacheErrors.WithLabelValues("store").Inc()
		return &Error{Op: "store", Key: key, Err: err}
	}

	if err := m.backend.Save(ctx, key, body, rawHeaders); err != nil {
		CacheErrors.WithLabelValues("store").Inc()
		m.logger.Error().Err(err).Str("cache_key", key).Msg("Cache store failed")
		return &Error{Op: "store", Key: key, Err: err}
	}

	CacheStoredBytes.WithLabelValues(m.backend.Name()).Add(float64(len(body)))
	m.logger.Info().
		Str("cache_key", key).
		Int("status_code", statusCode).
		Int("bytes", len(body)).
		Msg("Saved response (body + headers)")

	return nil
}

func containsHeader(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
