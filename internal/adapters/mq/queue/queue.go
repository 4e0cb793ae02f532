// Package queue buffers recognized voice phrases between the speech engine
// and the dispatcher.
//
// The queue is bounded and never blocks the producer: a phrase that does not
// fit is dropped, since a late celebration is worse than a missed one.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/overlay/pkg/metrics"
)

const defaultCapacity = 16

// Phrase is one utterance reported by a speech engine.
type Phrase struct {
	ID      string
	Text    string
	HeardAt time.Time
}

// NewPhrase stamps text with a fresh ID.
func NewPhrase(text string, at time.Time) Phrase {
	return Phrase{ID: uuid.NewString(), Text: text, HeardAt: at}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a phrase. It returns false if the queue is full or closed.
	Enqueue(ctx context.Context, p Phrase) bool

	// Dequeue returns a channel receiving phrases in arrival order. It is
	// closed once the queue is closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan Phrase

	Len() int

	// Close stops accepting phrases. Queued phrases can still be dequeued.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	phrases  chan Phrase
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.phrases = make(chan Phrase, q.capacity)
	metrics.UpdatePhraseQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, p Phrase) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordVoicePhrase("closed")
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	select {
	case q.phrases <- p:
		metrics.UpdatePhraseQueueSize(len(q.phrases))
		return true
	default:
		metrics.RecordVoicePhrase("dropped")
		return false
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Phrase {
	out := make(chan Phrase)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-q.phrases:
				if !ok {
					return
				}
				metrics.UpdatePhraseQueueSize(len(q.phrases))
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of queued phrases.
func (q *InMemoryQueue) Len() int {
	return len(q.phrases)
}

// Close implements Queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.phrases)
	q.closed = true
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
