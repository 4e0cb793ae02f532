package repository

import (
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/clock"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithInitialRecord seeds the store with rec instead of model.DefaultRecord.
func WithInitialRecord(rec model.StreamRecord) Option {
	return func(s *MemoryStore) {
		s.initial = rec.Clone()
	}
}

// WithClock sets the time source used for Stats.UpdatedAt.
func WithClock(c clock.Clock) Option {
	return func(s *MemoryStore) {
		if c != nil {
			s.clock = c
		}
	}
}
