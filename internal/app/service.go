// Package service composes the shared record store with the HTTP surface
// that serves it.
package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/okian/overlay/internal/adapters/http/api"
	"github.com/okian/overlay/internal/adapters/http/site"
	"github.com/okian/overlay/internal/adapters/http/swagger"
	repository "github.com/okian/overlay/internal/adapters/repository"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
)

// ErrNotStarted is returned when routes are requested before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns the stream record store for the lifetime of the process.
type Service struct {
	mu sync.RWMutex

	store *repository.MemoryStore

	// Configuration
	clock        clock.Clock
	initial      *model.StreamRecord
	maxBodyBytes int64

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source shared with the store.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithInitialRecord seeds the store instead of model.DefaultRecord.
func WithInitialRecord(rec model.StreamRecord) Option {
	return func(s *Service) {
		rec = rec.Clone()
		s.initial = &rec
	}
}

// WithMaxBodyBytes limits POST /stream-data bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New constructs a Service. Nothing is allocated until Start.
func New(opts ...Option) *Service {
	s := &Service{clock: clock.Real()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the store. Calling it twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	storeOpts := []repository.Option{repository.WithClock(s.clock)}
	if s.initial != nil {
		storeOpts = append(storeOpts, repository.WithInitialRecord(*s.initial))
	}
	s.store = repository.NewMemoryStore(storeOpts...)
	s.started = true
	s.startedAt = s.clock.Now()

	s.logger.Info(ctx, "stream overlay service started")
	return nil
}

// Stop marks the service stopped. The record is not retained.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.store = nil
	s.logger.Info(context.Background(), "stream overlay service stopped")
}

// Store returns the record store, or nil before Start.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil
	}
	return s.store
}

// Register attaches the API, docs and landing page routes to mux.
func (s *Service) Register(mux *http.ServeMux) error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return ErrNotStarted
	}

	swagger.Register(mux)
	site.Register(mux)
	api.NewServer(store, s,
		api.WithLogger(s.logger.Named("api")),
		api.WithMaxBodyBytes(s.maxBodyBytes),
	).Register(mux)
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	st := s.store.Stats()
	stats["revision"] = st.Revision
	stats["replaces"] = st.Replaces
	stats["rejected"] = st.Rejected
	stats["updatedAt"] = st.UpdatedAt.UTC().Format(time.RFC3339Nano)
	stats["uptimeSeconds"] = s.clock.Now().Sub(s.startedAt).Seconds()
	return stats
}
