// Package panel implements the control panel form state machine: cache-first
// hydration, persistence on every change, and the submit/trigger actions.
package panel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/overlay/internal/adapters/http/client"
	"github.com/okian/overlay/internal/cache"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
	"github.com/okian/overlay/pkg/metrics"
)

// Phase is the hydration state of the controller.
type Phase string

// Hydration phases. PhaseCorrupt is terminal until ClearCache.
const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseHydrating     Phase = "hydrating"
	PhaseReady         Phase = "ready"
	PhaseCorrupt       Phase = "corrupt"
)

// Status is the transient outcome of a submit or trigger request.
type Status string

// Request statuses.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	defaultSubmitReset  = 3 * time.Second
	defaultTriggerReset = 2 * time.Second
)

type request struct {
	status Status
	timer  clock.Timer
	gen    uint64
}

// Controller owns the form snapshot.
type Controller struct {
	mu sync.Mutex

	remote client.Remote
	cache  *cache.Cache
	key    string
	clock  clock.Clock
	log    logger.Logger
	reload func(ctx context.Context) error

	submitReset  time.Duration
	triggerReset time.Duration

	phase  Phase
	snap   Snapshot
	submit request
	effect request

	watchSeq int
	watchers map[int]chan bool
}

// New creates a controller in PhaseUninitialized.
func New(remote client.Remote, c *cache.Cache, opts ...Option) *Controller {
	ctl := &Controller{
		remote:       remote,
		cache:        c,
		key:          DefaultCacheKey,
		clock:        clock.Real(),
		log:          logger.Named("panel"),
		submitReset:  defaultSubmitReset,
		triggerReset: defaultTriggerReset,
		phase:        PhaseUninitialized,
		submit:       request{status: StatusIdle},
		effect:       request{status: StatusIdle},
		watchers:     make(map[int]chan bool),
	}
	ctl.reload = ctl.Mount
	for _, opt := range opts {
		opt(ctl)
	}
	return ctl
}

// Mount hydrates the snapshot. A cached snapshot wins without any network
// call. Otherwise the record is fetched and the derived snapshot persisted. If
// the fetch fails the controller still becomes ready with DefaultSnapshot and
// the fetch error is returned.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseUninitialized {
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w: phase %s", ErrAlreadyMounted, phase)
	}
	c.phase = PhaseHydrating
	c.mu.Unlock()

	cached, err := cache.Load[Snapshot](ctx, c.cache, c.key)
	if err != nil {
		c.setPhase(PhaseCorrupt)
		c.log.Error(ctx, "cached form state unreadable", logger.String("key", c.key), logger.Error(err))
		return errors.Join(ErrCorruptCache, err)
	}
	if cached != nil {
		c.becomeReady(ctx, *cached, false)
		c.log.Info(ctx, "hydrated from cache", logger.String("key", c.key))
		return nil
	}

	rec, err := c.remote.Fetch(ctx)
	if err != nil {
		c.becomeReady(ctx, DefaultSnapshot(), false)
		c.log.Warn(ctx, "initial fetch failed, using defaults", logger.Error(err))
		return fmt.Errorf("fetch initial record: %w", err)
	}
	c.becomeReady(ctx, SnapshotFromRecord(rec), true)
	c.log.Info(ctx, "hydrated from store", logger.Uint64("revision", rec.Revision))
	return nil
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Controller) becomeReady(ctx context.Context, s Snapshot, persist bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseHydrating {
		return
	}
	c.snap = s.Clone()
	c.phase = PhaseReady
	if persist {
		c.cache.Save(ctx, c.key, c.snap)
	}
	c.notifyLocked(c.snap.IsListening)
}

// ClearCache removes the cached snapshot, resets the controller and runs the
// reload hook. It is the only way out of PhaseCorrupt.
func (c *Controller) ClearCache(ctx context.Context) error {
	if err := c.cache.Remove(ctx, c.key); err != nil {
		return err
	}

	c.mu.Lock()
	c.phase = PhaseUninitialized
	c.snap = Snapshot{}
	c.resetLocked(&c.submit)
	c.resetLocked(&c.effect)
	c.notifyLocked(false)
	reload := c.reload
	c.mu.Unlock()

	metrics.RecordPanelRequest("clear_cache", string(StatusSuccess))
	c.log.Info(ctx, "cache cleared, reloading", logger.String("key", c.key))
	return reload(ctx)
}

// Phase returns the hydration phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns a copy of the form state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

// SubmitStatus returns the current submit status.
func (c *Controller) SubmitStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submit.status
}

// EffectStatus returns the current trigger status.
func (c *Controller) EffectStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effect.status
}

// Submit POSTs the form with lastEvent cleared.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	gen := c.beginLocked(&c.submit)
	payload := c.snap.Payload(nil, c.clock.Now())
	c.mu.Unlock()

	_, err := c.remote.Publish(ctx, payload)
	c.finish(&c.submit, gen, err, c.submitReset)
	metrics.RecordPanelRequest("submit", string(statusOf(err)))
	if err != nil {
		c.log.Warn(ctx, "submit failed", logger.Error(err))
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// TriggerEffect POSTs the form with lastEvent set to name at the current time.
// It returns false without sending anything while an earlier trigger is
// still in flight.
func (c *Controller) TriggerEffect(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	if c.phase != PhaseReady {
		c.mu.Unlock()
		return false, ErrNotReady
	}
	if c.effect.status == StatusLoading {
		c.mu.Unlock()
		metrics.RecordPanelRequest("trigger", "ignored")
		return false, nil
	}
	gen := c.beginLocked(&c.effect)
	now := c.clock.Now()
	payload := c.snap.Payload(model.NewEvent(name, now), now)
	c.mu.Unlock()

	_, err := c.remote.Publish(ctx, payload)
	c.finish(&c.effect, gen, err, c.triggerReset)
	metrics.RecordPanelRequest("trigger", string(statusOf(err)))
	metrics.RecordCelebrationTrigger("panel", name, err == nil)
	if err != nil {
		c.log.Warn(ctx, "trigger failed", logger.String("effect", name), logger.Error(err))
		return true, fmt.Errorf("trigger %s: %w", name, err)
	}
	c.log.Info(ctx, "effect triggered", logger.String("effect", name))
	return true, nil
}

func statusOf(err error) Status {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

func (c *Controller) beginLocked(r *request) uint64 {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	r.status = StatusLoading
	return r.gen
}

// finish records the outcome and schedules the return to idle. A request
// superseded by ClearCache or a newer request is ignored.
func (c *Controller) finish(r *request, gen uint64, err error, reset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.status = statusOf(err)
	r.timer = c.clock.AfterFunc(reset, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if r.gen == gen {
			r.status = StatusIdle
			r.timer = nil
		}
	})
}

func (c *Controller) resetLocked(r *request) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	r.status = StatusIdle
}

// mutate applies fn to a copy of the snapshot and persists the result.
func (c *Controller) mutate(ctx context.Context, fn func(s *Snapshot) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return ErrNotReady
	}
	next := c.snap.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	c.snap = next
	c.cache.Save(ctx, c.key, c.snap)
	return nil
}

// SetActiveTab selects a form section.
func (c *Controller) SetActiveTab(ctx context.Context, tab Tab) error {
	if !tab.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTab, tab)
	}
	return c.mutate(ctx, func(s *Snapshot) error {
		s.ActiveTab = tab
		return nil
	})
}

// SetListening records the voice listening intent and notifies watchers.
func (c *Controller) SetListening(ctx context.Context, on bool) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.IsListening = on
		c.notifyLocked(on)
		return nil
	})
}

// SetScoreLabel sets the score caption.
func (c *Controller) SetScoreLabel(ctx context.Context, v string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.ScoreLabel = v
		return nil
	})
}

// SetScoreValue sets the free-form score text.
func (c *Controller) SetScoreValue(ctx context.Context, v string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.ScoreValue = v
		return nil
	})
}

// SetBurndownLabel sets the goal caption.
func (c *Controller) SetBurndownLabel(ctx context.Context, v string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.HasBurndown = true
		s.BurndownLabel = v
		return nil
	})
}

// SetBurndownTarget sets the goal value. Non-positive targets are rejected by
// the store at submit time.
func (c *Controller) SetBurndownTarget(ctx context.Context, v float64) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.HasBurndown = true
		s.BurndownTargetValue = v
		return nil
	})
}

// SetBurndownEntriesText replaces the free-text score list.
func (c *Controller) SetBurndownEntriesText(ctx context.Context, text string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.HasBurndown = true
		s.BurndownEntriesText = text
		return nil
	})
}

// SetFontFamily sets the CSS font family.
func (c *Controller) SetFontFamily(ctx context.Context, v string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.FontFamily = v
		return nil
	})
}

// SetFontSize sets the font size in px.
func (c *Controller) SetFontSize(ctx context.Context, v float64) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.FontSize = v
		return nil
	})
}

// SetTransitionEffect sets how messages rotate.
func (c *Controller) SetTransitionEffect(ctx context.Context, v model.TransitionEffect) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.TransitionEffect = v
		return nil
	})
}

// SetTransitionDuration sets the seconds each message is shown.
func (c *Controller) SetTransitionDuration(ctx context.Context, v float64) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.TransitionDuration = v
		return nil
	})
}

// SetActivePreset selects the preset whose messages rotate. The name is not
// checked against the preset list.
func (c *Controller) SetActivePreset(ctx context.Context, name string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.ActivePresetName = name
		return nil
	})
}

// SetCurrentMessage sets the new-message draft.
func (c *Controller) SetCurrentMessage(ctx context.Context, v string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		s.CurrentMessage = v
		return nil
	})
}

// AddMessage appends the trimmed draft to the active preset and clears the
// draft. A blank draft or a missing active preset is a no-op.
func (c *Controller) AddMessage(ctx context.Context) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		text := strings.TrimSpace(s.CurrentMessage)
		if text == "" {
			return nil
		}
		i := findPreset(s.MessagePresets, s.ActivePresetName)
		if i < 0 {
			return nil
		}
		p := &s.MessagePresets[i]
		id := c.clock.Now().UnixMilli()
		for slices.ContainsFunc(p.Messages, func(m model.Message) bool { return m.ID == id }) {
			id++
		}
		p.Messages = append(p.Messages, model.Message{ID: id, Text: text})
		s.CurrentMessage = ""
		return nil
	})
}

// RemoveMessage deletes message id from the active preset.
func (c *Controller) RemoveMessage(ctx context.Context, id int64) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		i := findPreset(s.MessagePresets, s.ActivePresetName)
		if i < 0 {
			return nil
		}
		s.MessagePresets[i].Messages = slices.DeleteFunc(s.MessagePresets[i].Messages,
			func(m model.Message) bool { return m.ID == id })
		return nil
	})
}

// AddPreset appends an empty preset.
func (c *Controller) AddPreset(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return c.mutate(ctx, func(s *Snapshot) error {
		if findPreset(s.MessagePresets, name) >= 0 {
			return fmt.Errorf("%w: %q", ErrPresetExists, name)
		}
		s.MessagePresets = append(s.MessagePresets, model.MessagePreset{Name: name, Messages: []model.Message{}})
		return nil
	})
}

// RemovePreset deletes a preset. Removing the active preset activates the
// first remaining one, or none.
func (c *Controller) RemovePreset(ctx context.Context, name string) error {
	return c.mutate(ctx, func(s *Snapshot) error {
		i := findPreset(s.MessagePresets, name)
		if i < 0 {
			return nil
		}
		s.MessagePresets = slices.Delete(s.MessagePresets, i, i+1)
		if s.ActivePresetName == name {
			s.ActivePresetName = ""
			if len(s.MessagePresets) > 0 {
				s.ActivePresetName = s.MessagePresets[0].Name
			}
		}
		return nil
	})
}

func findPreset(presets []model.MessagePreset, name string) int {
	return slices.IndexFunc(presets, func(p model.MessagePreset) bool { return p.Name == name })
}

// WatchListening returns a channel carrying the latest listening intent. Only
// the most recent value is buffered. cancel releases the channel.
func (c *Controller) WatchListening() (<-chan bool, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchSeq++
	id := c.watchSeq
	ch := make(chan bool, 1)
	c.watchers[id] = ch
	if c.phase == PhaseReady {
		ch <- c.snap.IsListening
	}
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(ch)
		}
	}
}

func (c *Controller) notifyLocked(on bool) {
	for _, ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- on
	}
}
