package panel

import (
	"context"
	"time"

	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
)

// DefaultCacheKey is the cache key holding the form snapshot.
const DefaultCacheKey = "stream-overlay/control-panel"

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithCacheKey overrides DefaultCacheKey.
func WithCacheKey(key string) Option {
	return func(c *Controller) {
		if key != "" {
			c.key = key
		}
	}
}

// WithClock sets the time source for status resets, message IDs and event stamps.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSubmitReset sets how long a submit status is shown before returning to idle.
func WithSubmitReset(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.submitReset = d
		}
	}
}

// WithTriggerReset sets how long an effect status is shown before returning to idle.
func WithTriggerReset(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.triggerReset = d
		}
	}
}

// WithReloadHook replaces the action run after ClearCache. The default mounts again.
func WithReloadHook(fn func(ctx context.Context) error) Option {
	return func(c *Controller) {
		if fn != nil {
			c.reload = fn
		}
	}
}
