package cache

import "errors"

// ErrCorrupt marks a cached value that exists but is not valid JSON.
var ErrCorrupt = errors.New("corrupt cache entry")
