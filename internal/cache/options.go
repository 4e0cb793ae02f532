package cache

import "github.com/okian/overlay/pkg/logger"

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithLogger sets the logger used for best-effort save failures.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}
