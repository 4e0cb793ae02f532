package overlay

import (
	"sync"
	"time"

	"github.com/okian/overlay/pkg/clock"
)

// Animator holds the value on screen. A new value starts a window during which
// the old value stays displayed in the animating state; when the window ends
// the display snaps to the latest value. Every change restarts the window.
type Animator struct {
	clock  clock.Clock
	window time.Duration

	mu        sync.Mutex
	init      bool
	displayed float64
	target    float64
	animating bool
	timer     clock.Timer
}

// NewAnimator creates an animator with the given window.
func NewAnimator(c clock.Clock, window time.Duration) *Animator {
	return &Animator{clock: c, window: window}
}

// Set feeds the latest derived value. The first value is displayed at once.
func (a *Animator) Set(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.init {
		a.init = true
		a.displayed, a.target = v, v
		return
	}
	if v == a.target {
		return
	}
	a.target = v
	a.stopLocked()
	if v == a.displayed {
		return
	}
	a.animating = true
	a.timer = a.clock.AfterFunc(a.window, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.target == v {
			a.displayed = v
			a.animating = false
			a.timer = nil
		}
	})
}

func (a *Animator) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.animating = false
}

// Value returns the displayed value and whether it is animating.
func (a *Animator) Value() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.displayed, a.animating
}

// Stop cancels a pending window.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}
