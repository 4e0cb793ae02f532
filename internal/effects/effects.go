// Package effects turns lastEvent changes into bursts of self-expiring
// particles for the celebration overlays.
package effects

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
	"github.com/okian/overlay/pkg/metrics"
)

// Particle is one animated element. Positions are in viewport units.
type Particle struct {
	ID     string  `json:"id"`
	Effect string  `json:"effect"`
	Burst  int     `json:"burst"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
	Size   float64 `json:"size"`
	Color  string  `json:"color,omitempty"`

	Rotation    float64 `json:"rotation"`
	EndRotation float64 `json:"endRotation"`

	Duration time.Duration `json:"duration"`
	BornAt   time.Time     `json:"bornAt"`
}

// Controller owns the live particles of one effect.
type Controller struct {
	spec  Spec
	clock clock.Clock
	rand  *rand.Rand
	log   logger.Logger

	mu        sync.Mutex
	primed    bool
	last      int64
	bursts    int
	particles []Particle
	timers    map[string]clock.Timer
}

// New creates a controller for spec.
func New(spec Spec, opts ...Option) *Controller {
	cfg := newConfig(opts)
	return &Controller{
		spec:   spec,
		clock:  cfg.clock,
		rand:   cfg.rand,
		log:    cfg.log.Named(spec.Effect),
		timers: make(map[string]clock.Timer),
	}
}

// Effect returns the effect name this controller renders.
func (c *Controller) Effect() string { return c.spec.Effect }

// Observe reports whether trigger starts a new burst. The first observation
// only records the value, so a page opened after an event does not replay it.
// Zero never fires.
func (c *Controller) Observe(trigger int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.primed {
		c.primed = true
		c.last = trigger
		return false
	}
	if trigger == 0 || trigger == c.last {
		return false
	}
	c.last = trigger
	c.spawnLocked()
	return true
}

func (c *Controller) spawnLocked() {
	c.bursts++
	now := c.clock.Now()
	for i := 0; i < c.spec.Count; i++ {
		p := c.layout(now)
		c.particles = append(c.particles, p)
		id := p.ID
		c.timers[id] = c.clock.AfterFunc(p.Duration, func() { c.remove(id) })
	}
	metrics.UpdateActiveParticles(c.spec.Effect, len(c.particles))
	c.log.Debug(context.Background(), "burst spawned",
		logger.Int("burst", c.bursts),
		logger.Int("particles", len(c.particles)))
}

func (c *Controller) layout(now time.Time) Particle {
	s := c.spec
	p := Particle{
		ID:       uuid.NewString(),
		Effect:   s.Effect,
		Burst:    c.bursts,
		X:        c.rand.Float64() * 100,
		Size:     between(c.rand, s.MinSize, s.MaxSize),
		Duration: s.MinDuration + time.Duration(c.rand.Float64()*float64(s.MaxDuration-s.MinDuration)),
		BornAt:   now,
	}
	if len(s.Palette) > 0 {
		p.Color = s.Palette[c.rand.IntN(len(s.Palette))]
	}
	if s.StartY < 0 {
		p.Y = c.rand.Float64() * 100
		p.EndY = p.Y
	} else {
		p.Y = s.StartY
		p.EndY = s.EndY
	}
	p.EndX = p.X + (c.rand.Float64()-0.5)*s.Drift
	p.Rotation = c.rand.Float64() * s.MaxInitialRotation
	p.EndRotation = p.Rotation + s.Spin
	return p
}

func between(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func (c *Controller) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, id)
	c.particles = slices.DeleteFunc(c.particles, func(p Particle) bool { return p.ID == id })
	metrics.UpdateActiveParticles(c.spec.Effect, len(c.particles))
}

// Particles returns the live particles, oldest burst first.
func (c *Controller) Particles() []Particle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.particles)
}

// Active reports whether any particle is still on screen.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.particles) > 0
}

// Stop cancels every pending removal and clears the screen.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.particles = nil
	metrics.UpdateActiveParticles(c.spec.Effect, 0)
}

// Set routes lastEvent to one controller per effect.
type Set struct {
	controllers map[string]*Controller
	order       []string
}

// NewSet creates a controller for each spec, DefaultSpecs when none are given.
// Each controller gets its own random source seeded from the configured one.
func NewSet(specs []Spec, opts ...Option) *Set {
	if len(specs) == 0 {
		specs = DefaultSpecs()
	}
	seed := newConfig(opts).rand
	opts = slices.Clip(opts)
	s := &Set{controllers: make(map[string]*Controller, len(specs))}
	for _, spec := range specs {
		if _, dup := s.controllers[spec.Effect]; dup {
			continue
		}
		src := rand.New(rand.NewPCG(seed.Uint64(), seed.Uint64()))
		s.controllers[spec.Effect] = New(spec, append(opts, WithRand(src))...)
		s.order = append(s.order, spec.Effect)
	}
	return s
}

// Observe feeds ev to every controller: the one named by ev sees its
// timestamp, the rest see zero. It returns the effect that fired, if any.
func (s *Set) Observe(ev *model.Event) (string, bool) {
	fired := ""
	for _, name := range s.order {
		var trigger int64
		if ev != nil && ev.Name == name {
			trigger = ev.Timestamp
		}
		if s.controllers[name].Observe(trigger) {
			fired = name
		}
	}
	return fired, fired != ""
}

// Controller returns the controller for effect.
func (s *Set) Controller(effect string) (*Controller, bool) {
	c, ok := s.controllers[effect]
	return c, ok
}

// Particles returns every live particle across effects.
func (s *Set) Particles() []Particle {
	var out []Particle
	for _, name := range s.order {
		out = append(out, s.controllers[name].Particles()...)
	}
	return out
}

// Stop stops every controller.
func (s *Set) Stop() {
	for _, c := range s.controllers {
		c.Stop()
	}
}
