// Package cache persists client-side state as JSON in a key/value backend.
// It stands in for browser local storage: absent and corrupt values are
// reported distinctly, and saves never fail the caller.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okian/overlay/pkg/logger"
	"github.com/okian/overlay/pkg/metrics"
)

// Backend stores raw string values by key.
type Backend interface {
	// Get returns the stored value and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Cache encodes values to JSON on top of a Backend.
type Cache struct {
	backend Backend
	log     logger.Logger
}

// New wraps backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{backend: backend, log: logger.Named("cache")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load decodes the value stored under key. It returns nil, nil when the key is
// absent or holds JSON null, and an error wrapping ErrCorrupt when the stored
// text does not parse.
func Load[T any](ctx context.Context, c *Cache, key string) (*T, error) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheOperation("load", "error")
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	if !ok || bytes.Equal(bytes.TrimSpace([]byte(raw)), []byte("null")) {
		metrics.RecordCacheOperation("load", "miss")
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		metrics.RecordCacheOperation("load", "corrupt")
		return nil, fmt.Errorf("load %q: %w: %v", key, ErrCorrupt, err)
	}
	metrics.RecordCacheOperation("load", "hit")
	return &v, nil
}

// Save stores value under key. Failures are logged and swallowed.
func (c *Cache) Save(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.RecordCacheOperation("save", "error")
		c.log.Warn(ctx, "failed to encode cache value", logger.String("key", key), logger.Error(err))
		return
	}
	if err := c.backend.Set(ctx, key, string(data)); err != nil {
		metrics.RecordCacheOperation("save", "error")
		c.log.Warn(ctx, "failed to write cache value", logger.String("key", key), logger.Error(err))
		return
	}
	metrics.RecordCacheOperation("save", "ok")
}

// Remove deletes key. It is idempotent.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		metrics.RecordCacheOperation("remove", "error")
		return fmt.Errorf("remove %q: %w", key, err)
	}
	metrics.RecordCacheOperation("remove", "ok")
	return nil
}

// MemoryBackend is a map-backed Backend.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
