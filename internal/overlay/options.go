package overlay

import (
	"time"

	"github.com/okian/overlay/internal/domain/burndown"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
)

const (
	defaultPollInterval    = 2 * time.Second
	defaultAnimationWindow = 500 * time.Millisecond
)

// Option configures an overlay.
type Option func(*settings)

type settings struct {
	clock             clock.Clock
	log               logger.Logger
	pollInterval      time.Duration
	animationWindow   time.Duration
	fireworksDuration time.Duration
}

func newSettings(name string, opts []Option) settings {
	s := settings{
		clock:             clock.Real(),
		log:               logger.Named("overlay").Named(name),
		pollInterval:      defaultPollInterval,
		animationWindow:   defaultAnimationWindow,
		fireworksDuration: burndown.FireworksDuration,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithClock sets the clock driving polls, animations and effect lifetimes.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPollInterval sets the time between fetches.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithAnimationWindow sets how long a changed remaining value animates.
func WithAnimationWindow(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.animationWindow = d
		}
	}
}

// WithFireworksDuration sets how long a fireworks event stays active and how
// long the burn-down overlay waits before triggering again.
func WithFireworksDuration(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.fireworksDuration = d
		}
	}
}
