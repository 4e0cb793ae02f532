package client

import (
	"net/http"
	"time"
)

// Option applies a configuration option to the HTTP client.
type Option func(*HTTP)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTP) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTP) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithPath overrides the record path (default /stream-data).
func WithPath(path string) Option {
	return func(c *HTTP) {
		if path != "" {
			c.path = path
		}
	}
}
