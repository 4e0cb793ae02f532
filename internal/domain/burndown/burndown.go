// Package burndown derives the goal chart state from a record. Everything here
// is a pure function of its inputs so overlays can recompute on every poll.
package burndown

import (
	"math"
	"slices"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
)

// FireworksDuration is how long a FIREWORKS event stays active after its timestamp.
const FireworksDuration = 20 * time.Second

const fullPercentage = 100

// Summary is the derived view of one burndown.
type Summary struct {
	TotalEarned    float64
	Remaining      float64
	HasReachedZero bool
	// Percentage is the rounded earned share, capped at 100.
	Percentage int
	// BarWidth is the unrounded earned share in percent, capped at 100.
	BarWidth float64
}

// Summarize computes totals for b. A non-positive target counts as reached.
func Summarize(b model.Burndown) Summary {
	var total float64
	for _, e := range b.Entries {
		total += e.Score
	}
	remaining := math.Max(0, b.TargetValue-total)

	share := float64(fullPercentage)
	if b.TargetValue > 0 {
		share = total / b.TargetValue * fullPercentage
	}
	share = math.Min(fullPercentage, share)

	return Summary{
		TotalEarned:    total,
		Remaining:      remaining,
		HasReachedZero: remaining <= 0,
		Percentage:     int(math.Floor(share + 0.5)),
		BarWidth:       share,
	}
}

// SortedEntries returns a copy of entries ordered by timestamp ascending.
// Equal timestamps keep their insertion order.
func SortedEntries(entries []model.BurndownEntry) []model.BurndownEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b model.BurndownEntry) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return out
}

// Points returns the chart series: the target followed by the remaining value
// after each entry in timestamp order, clamped at zero.
func Points(b model.Burndown) []float64 {
	sorted := SortedEntries(b.Entries)
	points := make([]float64, 0, len(sorted)+1)
	points = append(points, b.TargetValue)
	last := b.TargetValue
	for _, e := range sorted {
		last = math.Max(0, last-e.Score)
		points = append(points, last)
	}
	return points
}

// IsEventActive reports whether ev is the named effect and fired less than
// duration before now.
func IsEventActive(ev *model.Event, name string, now time.Time, duration time.Duration) bool {
	if ev == nil || ev.Name != name {
		return false
	}
	return ev.Elapsed(now) < duration
}

// ShouldTrigger decides whether a poller that observed s and ev should request
// a FIREWORKS celebration. It does not account for the poller's own recent POSTs.
func ShouldTrigger(s Summary, ev *model.Event, now time.Time, duration time.Duration) bool {
	if !s.HasReachedZero {
		return false
	}
	if ev == nil || ev.Name != model.EffectFireworks {
		return true
	}
	return ev.Elapsed(now) >= duration
}
