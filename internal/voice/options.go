package voice

import (
	"time"

	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
)

// Option configures a Listener.
type Option func(*Listener)

// WithInterpreter replaces the default phrase table.
func WithInterpreter(in *Interpreter) Option {
	return func(l *Listener) {
		if in != nil {
			l.interpreter = in
		}
	}
}

// WithRestartDelay sets the pause before reopening a session that ended on
// its own.
func WithRestartDelay(d time.Duration) Option {
	return func(l *Listener) {
		if d >= 0 {
			l.restartDelay = d
		}
	}
}

// WithQueueSize bounds the number of phrases waiting for dispatch.
func WithQueueSize(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithClock sets the clock used for restart delays and phrase timestamps.
func WithClock(c clock.Clock) Option {
	return func(l *Listener) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogger sets the listener logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Listener) {
		if lg != nil {
			l.log = lg
		}
	}
}
