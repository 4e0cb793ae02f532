package effects

import (
	"time"

	model "github.com/okian/overlay/internal/domain/model"
)

// Spec describes one burst of an effect.
type Spec struct {
	Effect string
	Count  int

	MinSize, MaxSize         float64 // px
	MinDuration, MaxDuration time.Duration

	// StartY is the spawn height in vh. Negative means anywhere on screen.
	StartY float64
	// EndY is where a rising particle ends, in vh. Ignored when StartY < 0.
	EndY float64
	// Drift is the widest horizontal travel in vw, split evenly left and right.
	Drift float64

	MaxInitialRotation float64 // degrees
	Spin               float64 // degrees added over the lifetime

	Palette []string
}

// Burst parameters per effect.
var (
	Hearts = Spec{
		Effect:      model.EffectLove,
		Count:       30,
		MinSize:     20,
		MaxSize:     50,
		MinDuration: 9 * time.Second,
		MaxDuration: 12 * time.Second,
		StartY:      110,
		EndY:        -20,
		Drift:       40,
		Palette: []string{
			"rgba(255, 105, 180, 0.8)",
			"rgba(255, 20, 147, 0.7)",
			"rgba(255, 182, 193, 0.8)",
			"rgba(219, 112, 147, 0.7)",
			"rgba(255, 99, 71, 0.8)",
		},
	}

	Stars = Spec{
		Effect:      model.EffectStar,
		Count:       30,
		MinSize:     15,
		MaxSize:     40,
		MinDuration: 4 * time.Second,
		MaxDuration: 7 * time.Second,
		StartY:      110,
		EndY:        -20,
		Drift:       40,
		Spin:        360,
		Palette:     []string{"#FFD700", "#FFA500", "#FFEC8B", "#FFFFE0", "#FFFFFF"},
	}

	Sparkles = Spec{
		Effect:             model.EffectSparkle,
		Count:              100,
		MinSize:            8,
		MaxSize:            23,
		MinDuration:        9 * time.Second,
		MaxDuration:        12 * time.Second,
		StartY:             -1,
		MaxInitialRotation: 90,
		Spin:               90,
		Palette:            []string{"#FFFFFF", "#FFFFE0", "#FFD700", "#87CEFA"},
	}

	Bubbles = Spec{
		Effect:      model.EffectBubble,
		Count:       40,
		MinSize:     20,
		MaxSize:     60,
		MinDuration: 7 * time.Second,
		MaxDuration: 12 * time.Second,
		StartY:      110,
		EndY:        -20,
		Drift:       30,
		Palette: []string{
			"rgba(173, 216, 230, 0.5)",
			"rgba(135, 206, 250, 0.4)",
			"rgba(147, 112, 219, 0.4)",
			"rgba(123, 104, 238, 0.5)",
			"rgba(180, 200, 250, 0.6)",
		},
	}

	// Fireworks shells have no size or palette; the overlay draws them.
	Fireworks = Spec{
		Effect:      model.EffectFireworks,
		Count:       12,
		MinDuration: 20 * time.Second,
		MaxDuration: 20 * time.Second,
		StartY:      100,
		EndY:        30,
	}
)

// DefaultSpecs lists every effect an overlay can show.
func DefaultSpecs() []Spec {
	return []Spec{Hearts, Stars, Sparkles, Bubbles, Fireworks}
}
