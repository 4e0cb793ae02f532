// Package model contains the stream record shared by the store, the control
// panel and the overlays, plus the patch type decoded from POST bodies.
package model

import "time"

// Celebration effect names carried in lastEvent.name.
const (
	EffectFireworks = "FIREWORKS"
	EffectLove      = "LOVE"
	EffectStar      = "STAR"
	EffectSparkle   = "SPARKLE"
	EffectBubble    = "BUBBLE"
)

// Event is the most recently triggered celebration.
type Event struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// NewEvent stamps name with t.
func NewEvent(name string, t time.Time) *Event {
	return &Event{Name: name, Timestamp: t.UnixMilli()}
}

// Time returns the event timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Elapsed reports how long ago the event fired relative to now.
func (e Event) Elapsed(now time.Time) time.Duration {
	return now.Sub(e.Time())
}
