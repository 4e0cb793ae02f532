package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/overlay/internal/adapters/http/client"
	"github.com/okian/overlay/internal/domain/burndown"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/effects"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
	"github.com/okian/overlay/pkg/metrics"
)

const burndownName = "burndown"

// BurndownView is what the burn-down overlay shows.
type BurndownView struct {
	// Ready is false until a record with a burndown has been applied.
	Ready bool `json:"ready"`

	Label       string           `json:"label"`
	TargetValue float64          `json:"targetValue"`
	FontFamily  string           `json:"fontFamily"`
	Summary     burndown.Summary `json:"summary"`
	Points      []float64        `json:"points"`

	Displayed float64 `json:"displayed"`
	Animating bool    `json:"animating"`

	FireworksActive bool               `json:"fireworksActive"`
	Fireworks       []effects.Particle `json:"fireworks,omitempty"`
}

// BurndownOverlay polls the record, animates the remaining value and posts a
// fireworks event when the goal is reached.
type BurndownOverlay struct {
	id        string
	remote    client.Remote
	clock     clock.Clock
	log       logger.Logger
	window    time.Duration
	animator  *Animator
	fireworks *effects.Controller
	poller    *Poller

	mu       sync.Mutex
	rec      *model.StreamRecord
	posted   bool
	lastPost time.Time
}

var _ Sink = (*BurndownOverlay)(nil)

// NewBurndownOverlay creates the overlay. Run starts it.
func NewBurndownOverlay(remote client.Remote, opts ...Option) *BurndownOverlay {
	s := newSettings(burndownName, opts)
	o := &BurndownOverlay{
		id:       uuid.NewString(),
		remote:   remote,
		clock:    s.clock,
		window:   s.fireworksDuration,
		animator: NewAnimator(s.clock, s.animationWindow),
		fireworks: effects.New(effects.Fireworks,
			effects.WithClock(s.clock), effects.WithLogger(s.log)),
	}
	o.log = s.log.With(logger.String("instance", o.id))
	o.poller = NewPoller(burndownName, remote, o, append(opts, WithLogger(o.log))...)
	return o
}

// ID identifies this overlay instance in logs.
func (o *BurndownOverlay) ID() string { return o.id }

// Run polls until ctx is done.
func (o *BurndownOverlay) Run(ctx context.Context) error {
	defer o.fireworks.Stop()
	defer o.animator.Stop()
	return o.poller.Run(ctx)
}

// Apply implements Sink.
func (o *BurndownOverlay) Apply(rec model.StreamRecord, now time.Time) func(context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec = rec.Clone()
	o.rec = &rec
	if rec.Burndown == nil {
		return nil
	}

	s := burndown.Summarize(*rec.Burndown)
	o.animator.Set(s.Remaining)

	var ts int64
	if rec.LastEvent != nil && rec.LastEvent.Name == model.EffectFireworks {
		ts = rec.LastEvent.Timestamp
	}
	o.fireworks.Observe(ts)

	if !burndown.ShouldTrigger(s, rec.LastEvent, now, o.window) {
		return nil
	}
	if o.posted && now.Sub(o.lastPost) < o.window {
		return nil
	}
	o.posted = true
	o.lastPost = now

	payload := rec.Clone()
	payload.LastEvent = model.NewEvent(model.EffectFireworks, now)
	return func(ctx context.Context) {
		_, err := o.remote.Publish(ctx, payload)
		metrics.RecordCelebrationTrigger(burndownName, model.EffectFireworks, err == nil)
		if err != nil {
			o.mu.Lock()
			if o.lastPost.Equal(now) {
				o.posted = false
			}
			o.mu.Unlock()
			o.log.Warn(ctx, "fireworks trigger failed", logger.Error(err))
			return
		}
		o.log.Info(ctx, "goal reached, fireworks triggered")
	}
}

// View returns the current overlay state.
func (o *BurndownOverlay) View() BurndownView {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rec == nil || o.rec.Burndown == nil {
		return BurndownView{}
	}
	b := *o.rec.Burndown
	displayed, animating := o.animator.Value()
	return BurndownView{
		Ready:           true,
		Label:           b.Label,
		TargetValue:     b.TargetValue,
		FontFamily:      o.rec.FontFamily,
		Summary:         burndown.Summarize(b),
		Points:          burndown.Points(b),
		Displayed:       displayed,
		Animating:       animating,
		FireworksActive: burndown.IsEventActive(o.rec.LastEvent, model.EffectFireworks, o.clock.Now(), o.window),
		Fireworks:       o.fireworks.Particles(),
	}
}
