package effects

import (
	"math/rand/v2"

	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
)

// Option configures a Controller or a Set.
type Option func(*config)

type config struct {
	clock clock.Clock
	rand  *rand.Rand
	log   logger.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		clock: clock.Real(),
		log:   logger.Named("effects"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rand == nil {
		cfg.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return cfg
}

// WithClock drives particle lifetimes from c.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithRand sets the random source used to lay out particles. A Controller
// uses r under its own lock, so r must not be shared with other goroutines.
// NewSet only draws seeds from r.
func WithRand(r *rand.Rand) Option {
	return func(cfg *config) {
		cfg.rand = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.log = l
		}
	}
}
