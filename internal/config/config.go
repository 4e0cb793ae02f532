// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Durations are configured in milliseconds and exposed as time.Duration.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// StoreURL is the base URL clients use to reach the stream data endpoint.
	StoreURL string `koanf:"store_url"`
	// HTTPTimeoutMS bounds each client request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// PollIntervalMS is the overlay fetch period.
	PollIntervalMS int `koanf:"poll_interval_ms"`
	// AnimationWindowMS is how long a changed remaining value animates.
	AnimationWindowMS int `koanf:"animation_window_ms"`
	// FireworksDurationMS is how long a fireworks event stays active.
	FireworksDurationMS int `koanf:"fireworks_duration_ms"`

	// SubmitResetMS and TriggerResetMS return panel statuses to idle.
	SubmitResetMS  int `koanf:"submit_reset_ms"`
	TriggerResetMS int `koanf:"trigger_reset_ms"`

	// CachePath is the SQLite file holding panel state. Empty keeps it in memory.
	CachePath string `koanf:"cache_path"`
	// CacheKey is the key the panel snapshot is stored under.
	CacheKey string `koanf:"cache_key"`

	// VoiceQueueSize bounds recognized phrases waiting for dispatch.
	VoiceQueueSize int `koanf:"voice_queue_size"`
	// VoiceRestartDelayMS is the pause before reopening an ended speech session.
	VoiceRestartDelayMS int `koanf:"voice_restart_delay_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		StoreURL:            "http://localhost:9080",
		HTTPTimeoutMS:       5_000,
		PollIntervalMS:      2_000,
		AnimationWindowMS:   500,
		FireworksDurationMS: 20_000,
		SubmitResetMS:       3_000,
		TriggerResetMS:      2_000,
		CacheKey:            "stream-overlay/control-panel",
		VoiceQueueSize:      16,
		VoiceRestartDelayMS: 300,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.StoreURL == "" {
		return fmt.Errorf("%w: store_url must not be empty", ErrInvalidConfig)
	}
	if c.CacheKey == "" {
		return fmt.Errorf("%w: cache_key must not be empty", ErrInvalidConfig)
	}
	positive := []struct {
		name string
		v    int
	}{
		{"http_timeout_ms", c.HTTPTimeoutMS},
		{"poll_interval_ms", c.PollIntervalMS},
		{"animation_window_ms", c.AnimationWindowMS},
		{"fireworks_duration_ms", c.FireworksDurationMS},
		{"submit_reset_ms", c.SubmitResetMS},
		{"trigger_reset_ms", c.TriggerResetMS},
		{"voice_queue_size", c.VoiceQueueSize},
	}
	for _, f := range positive {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, f.name, f.v)
		}
	}
	if c.VoiceRestartDelayMS < 0 {
		return fmt.Errorf("%w: voice_restart_delay_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// HTTPTimeout returns HTTPTimeoutMS as a duration.
func (c *Config) HTTPTimeout() time.Duration { return ms(c.HTTPTimeoutMS) }

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration { return ms(c.PollIntervalMS) }

// AnimationWindow returns AnimationWindowMS as a duration.
func (c *Config) AnimationWindow() time.Duration { return ms(c.AnimationWindowMS) }

// FireworksDuration returns FireworksDurationMS as a duration.
func (c *Config) FireworksDuration() time.Duration { return ms(c.FireworksDurationMS) }

// SubmitReset returns SubmitResetMS as a duration.
func (c *Config) SubmitReset() time.Duration { return ms(c.SubmitResetMS) }

// TriggerReset returns TriggerResetMS as a duration.
func (c *Config) TriggerReset() time.Duration { return ms(c.TriggerResetMS) }

// VoiceRestartDelay returns VoiceRestartDelayMS as a duration.
func (c *Config) VoiceRestartDelay() time.Duration { return ms(c.VoiceRestartDelayMS) }
