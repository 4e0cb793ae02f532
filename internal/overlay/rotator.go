package overlay

import (
	"slices"
	"sync"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/clock"
)

// Rotator cycles through the active messages.
type Rotator struct {
	clock clock.Clock

	mu       sync.Mutex
	messages []model.Message
	seconds  float64
	index    int
	timer    clock.Timer
	gen      uint64
}

// NewRotator creates an empty rotator.
func NewRotator(c clock.Clock) *Rotator {
	return &Rotator{clock: c}
}

// Update sets the message list and the seconds each message is shown. A new
// list starts over at the first message. Fewer than two messages or a
// duration under one second pins the first message.
func (r *Rotator) Update(messages []model.Message, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := !slices.Equal(messages, r.messages)
	if !changed && seconds == r.seconds {
		return
	}
	r.messages = slices.Clone(messages)
	r.seconds = seconds
	if changed {
		r.index = 0
	}
	r.stopLocked()

	if len(r.messages) < 2 || seconds < 1 {
		r.index = 0
		return
	}
	r.scheduleLocked(r.gen)
}

func (r *Rotator) scheduleLocked(gen uint64) {
	d := time.Duration(r.seconds * float64(time.Second))
	r.timer = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gen != gen {
			return
		}
		r.index = (r.index + 1) % len(r.messages)
		r.scheduleLocked(gen)
	})
}

func (r *Rotator) stopLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Current returns the text on screen, or "" when there are no messages.
func (r *Rotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index >= len(r.messages) {
		return ""
	}
	return r.messages[r.index].Text
}

// Index returns the position of the current message.
func (r *Rotator) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Stop cancels rotation.
func (r *Rotator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}
