package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/effects"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
)

const scoreName = "score"

// ScoreView is what the score overlay shows.
type ScoreView struct {
	Ready            bool                   `json:"ready"`
	ScoreLabel       string                 `json:"scoreLabel"`
	ScoreValue       string                 `json:"scoreValue"`
	Animating        bool                   `json:"animating"`
	FontFamily       string                 `json:"fontFamily"`
	FontSize         float64                `json:"fontSize"`
	Message          string                 `json:"message"`
	TransitionEffect model.TransitionEffect `json:"transitionEffect"`
	Particles        []effects.Particle     `json:"particles,omitempty"`
}

// ScoreOverlay polls the record for the score display, rotates the active
// messages and plays celebration effects. A changed score value is shown at
// once and highlighted for the animation window.
type ScoreOverlay struct {
	id      string
	log     logger.Logger
	clock   clock.Clock
	window  time.Duration
	rotator *Rotator
	effects *effects.Set
	poller  *Poller

	mu        sync.Mutex
	rec       *model.StreamRecord
	changedAt time.Time
}

var _ Sink = (*ScoreOverlay)(nil)

// NewScoreOverlay creates the overlay. Run starts it.
func NewScoreOverlay(f Fetcher, opts ...Option) *ScoreOverlay {
	s := newSettings(scoreName, opts)
	o := &ScoreOverlay{
		id:      uuid.NewString(),
		clock:   s.clock,
		window:  s.animationWindow,
		rotator: NewRotator(s.clock),
		effects: effects.NewSet(nil, effects.WithClock(s.clock), effects.WithLogger(s.log)),
	}
	o.log = s.log.With(logger.String("instance", o.id))
	o.poller = NewPoller(scoreName, f, o, append(opts, WithLogger(o.log))...)
	return o
}

// ID identifies this overlay instance in logs.
func (o *ScoreOverlay) ID() string { return o.id }

// Run polls until ctx is done.
func (o *ScoreOverlay) Run(ctx context.Context) error {
	defer o.effects.Stop()
	defer o.rotator.Stop()
	return o.poller.Run(ctx)
}

// Apply implements Sink.
func (o *ScoreOverlay) Apply(rec model.StreamRecord, now time.Time) func(context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rec != nil && o.rec.ScoreValue != rec.ScoreValue {
		o.changedAt = now
	}
	rec = rec.Clone()
	o.rec = &rec
	o.rotator.Update(rec.ActiveMessages(), rec.TransitionDuration)
	if name, fired := o.effects.Observe(rec.LastEvent); fired {
		o.log.Info(context.Background(), "celebration", logger.String("effect", name))
	}
	return nil
}

// View returns the current overlay state.
func (o *ScoreOverlay) View() ScoreView {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rec == nil {
		return ScoreView{}
	}
	return ScoreView{
		Ready:            true,
		ScoreLabel:       o.rec.ScoreLabel,
		ScoreValue:       o.rec.ScoreValue,
		Animating:        !o.changedAt.IsZero() && o.clock.Now().Sub(o.changedAt) < o.window,
		FontFamily:       o.rec.FontFamily,
		FontSize:         o.rec.FontSize,
		Message:          o.rotator.Current(),
		TransitionEffect: o.rec.TransitionEffect,
		Particles:        o.effects.Particles(),
	}
}
