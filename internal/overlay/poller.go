// Package overlay implements the polling overlays: the burn-down goal with its
// fireworks trigger, and the score display with rotating messages.
package overlay

import (
	"context"
	"sync"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
	"github.com/okian/overlay/pkg/metrics"
)

// Fetcher reads the shared record.
type Fetcher interface {
	Fetch(ctx context.Context) (model.StreamRecord, error)
}

// Sink receives accepted records. Apply is called with the poller lock held
// and must not block; it may return a follow-up that runs after the lock is
// released, on the polling goroutine.
type Sink interface {
	Apply(rec model.StreamRecord, now time.Time) func(ctx context.Context)
}

// Poller fetches the record immediately and then on every interval. Each tick
// fetches in its own goroutine, so a slow fetch never delays the next one.
// Responses are ordered by dispatch: one arriving after a response from a
// later tick is dropped. Revisions are not compared, so a store that restarts
// at revision 0 is still followed.
type Poller struct {
	name     string
	fetcher  Fetcher
	sink     Sink
	clock    clock.Clock
	interval time.Duration
	log      logger.Logger

	mu         sync.Mutex
	applied    uint64
	appliedSeq uint64
	seen       bool

	inflight sync.WaitGroup
}

// NewPoller creates a poller reporting metrics under name.
func NewPoller(name string, f Fetcher, sink Sink, opts ...Option) *Poller {
	s := newSettings(name, opts)
	return &Poller{
		name:     name,
		fetcher:  f,
		sink:     sink,
		clock:    s.clock,
		interval: s.pollInterval,
		log:      s.log,
	}
}

// Run polls until ctx is done, then waits for in-flight fetches. Responses
// arriving after ctx is done are discarded.
func (p *Poller) Run(ctx context.Context) error {
	var (
		mu    sync.Mutex
		timer clock.Timer
		seq   uint64
		tick  func()
	)
	tick = func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		seq++
		p.inflight.Add(1)
		go p.poll(ctx, seq)
		timer = p.clock.AfterFunc(p.interval, tick)
	}

	p.log.Info(ctx, "polling started", logger.Duration("interval", p.interval))
	tick()
	<-ctx.Done()

	mu.Lock()
	if timer != nil {
		timer.Stop()
	}
	mu.Unlock()
	p.inflight.Wait()
	p.log.Info(context.Background(), "polling stopped")
	return nil
}

func (p *Poller) poll(ctx context.Context, seq uint64) {
	defer p.inflight.Done()

	start := time.Now()
	rec, err := p.fetcher.Fetch(ctx)
	metrics.RecordPollLatency(p.name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.RecordPoll(p.name, "error")
		p.log.Warn(ctx, "fetch failed, keeping previous record", logger.Error(err))
		return
	}

	if follow := p.accept(ctx, seq, rec); follow != nil {
		follow(ctx)
	}
}

func (p *Poller) accept(ctx context.Context, seq uint64, rec model.StreamRecord) func(context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return nil
	}
	if seq < p.appliedSeq {
		metrics.RecordPoll(p.name, "stale")
		metrics.RecordStaleResponseDropped(p.name)
		p.log.Debug(ctx, "stale response dropped",
			logger.Uint64("seq", seq),
			logger.Uint64("applied_seq", p.appliedSeq),
			logger.Uint64("revision", rec.Revision))
		return nil
	}
	if p.seen && rec.Revision < p.applied {
		p.log.Warn(ctx, "store revision went backwards, following it",
			logger.Uint64("revision", rec.Revision),
			logger.Uint64("applied", p.applied))
	}
	p.seen = true
	p.applied = rec.Revision
	p.appliedSeq = seq
	metrics.RecordPoll(p.name, "ok")
	return p.sink.Apply(rec, p.clock.Now())
}

// Revision returns the last applied revision.
func (p *Poller) Revision() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied, p.seen
}
