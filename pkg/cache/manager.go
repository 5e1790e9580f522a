package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/airtable-proxy/pkg/records"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by backends when no entry exists for a key
	ErrNotFound = errors.New("cache entry not found")
)

// Backend is a key to blob store. Implementations return ErrNotFound
// from Read and Delete when the key is absent.
type Backend interface {
	// Name identifies the backend in metrics and logs (e.g. "file", "redis")
	Name() string
	Read(ctx context.Context, key Key) ([]byte, error)
	Write(ctx context.Context, key Key, data []byte) error
	Delete(ctx context.Context, key Key) error
	Close() error
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Manager stores page results on a Backend.
type Manager struct {
	backend Backend
	logger  zerolog.Logger
}

// NewManager creates a new cache manager on the given backend.
func NewManager(backend Backend, logger zerolog.Logger) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	return &Manager{
		backend: backend,
		logger:  logger,
	}
}

// Backend returns the underlying backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Get returns the cached page for key. Any failure, including a missing or
// unparseable entry, is reported as a miss and never returned to the caller.
func (m *Manager) Get(ctx context.Context, key Key) (records.Page, bool) {
	data, err := m.backend.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			CacheErrors.WithLabelValues("get").Inc()
			m.logger.Warn().Err(err).Str("cache_key", key.String()).Msg("Cache read failed, treating as miss")
		}
		CacheMisses.Inc()
		return nil, false
	}

	page, err := records.Decode(data)
	if err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		CacheMisses.Inc()
		m.logger.Warn().Err(err).Str("cache_key", key.String()).Msg("Cached entry unreadable, treating as miss")
		return nil, false
	}

	CacheHits.WithLabelValues(m.backend.Name()).Inc()
	return page, true
}

// Set stores page under key, replacing any previous entry.
func (m *Manager) Set(ctx context.Context, key Key, page records.Page) error {
	data, err := records.Encode(page)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return err
	}

	if err := m.backend.Write(ctx, key, data); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("%s write %s: %w", m.backend.Name(), key, err)
	}

	CacheWrittenBytes.WithLabelValues(m.backend.Name()).Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry. Returns ErrNotFound if nothing was stored.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.backend.Delete(ctx, key); err != nil {
		if !errors.Is(err, ErrNotFound) {
			CacheErrors.WithLabelValues("delete").Inc()
		}
		return fmt.Errorf("%s delete %s: %w", m.backend.Name(), key, err)
	}
	return nil
}

// Ping checks the backend when it supports it.
func (m *Manager) Ping(ctx context.Context) error {
	if p, ok := m.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases backend resources.
func (m *Manager) Close() error {
	return m.backend.Close()
}
