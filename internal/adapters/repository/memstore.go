package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/metrics"
)

// MemoryStore keeps the record in process memory. Reads load an immutable
// snapshot without locking; replaces are serialized and last write wins.
type MemoryStore struct {
	mu    sync.Mutex
	clock clock.Clock

	initial model.StreamRecord

	// snapshot is never mutated after being published.
	snapshot atomic.Pointer[model.StreamRecord]

	replaces  atomic.Uint64
	rejected  atomic.Uint64
	updatedAt atomic.Int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a store holding the default record at revision 0.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		clock:   clock.Real(),
		initial: model.DefaultRecord(),
	}
	for _, opt := range opts {
		opt(s)
	}

	rec := s.initial
	rec.Revision = 0
	s.snapshot.Store(&rec)
	s.updatedAt.Store(s.clock.Now().UnixMilli())
	return s
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context) (model.StreamRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.StreamRecord{}, err
	}
	return s.snapshot.Load().Clone(), nil
}

// Replace implements Store.Replace.
func (s *MemoryStore) Replace(ctx context.Context, patch model.RecordPatch) (model.StreamRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.StreamRecord{}, err
	}
	if err := patch.Validate(); err != nil {
		s.rejected.Add(1)
		metrics.RecordStoreValidationError()
		return model.StreamRecord{}, fmt.Errorf("replace record: %w", err)
	}

	s.mu.Lock()
	next := patch.Apply(*s.snapshot.Load())
	next.Revision++
	s.snapshot.Store(&next)
	s.mu.Unlock()

	s.replaces.Add(1)
	s.updatedAt.Store(s.clock.Now().UnixMilli())
	metrics.RecordStoreReplace(next.Revision)
	return next.Clone(), nil
}

// Stats returns replace counters and the current revision.
func (s *MemoryStore) Stats() Stats {
	return Stats{
		Revision:  s.snapshot.Load().Revision,
		Replaces:  s.replaces.Load(),
		Rejected:  s.rejected.Load(),
		UpdatedAt: time.UnixMilli(s.updatedAt.Load()),
	}
}
