// Package worker drains the phrase queue and hands each phrase to a handler.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/overlay/internal/adapters/mq/queue"
	"github.com/okian/overlay/pkg/logger"
	"github.com/okian/overlay/pkg/metrics"
)

// Handler acts on one phrase.
type Handler interface {
	Handle(ctx context.Context, p queue.Phrase) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, p queue.Phrase) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, p queue.Phrase) error { return f(ctx, p) }

// Queue defines how workers receive phrases.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Phrase
}

// Worker processes phrases one at a time, in order.
type Worker interface {
	// Run blocks until ctx is done, Shutdown is called or the queue is drained
	// after Close.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		handler:  h,
		name:     "phrase-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	phrases := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case p, ok := <-phrases:
			if !ok {
				return
			}
			if err := w.handler.Handle(ctx, p); err != nil {
				metrics.RecordErrorByType("phrase_handler", "low")
				w.logger.Error(ctx, "error handling phrase",
					logger.String("phraseID", p.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals Run to return and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}
