package panel

import "errors"

// Sentinel kinds for control panel errors.
var (
	// ErrCorruptCache is returned by Mount when the cached form state cannot be
	// read. The controller stays in PhaseCorrupt until ClearCache.
	ErrCorruptCache = errors.New("cached form state is corrupt")
	// ErrNotReady is returned by mutations and actions outside PhaseReady.
	ErrNotReady = errors.New("control panel is not ready")
	// ErrAlreadyMounted is returned by Mount after the first successful call.
	ErrAlreadyMounted = errors.New("control panel already mounted")
	ErrInvalidTab     = errors.New("unknown tab")
	ErrEmptyName      = errors.New("preset name must not be empty")
	ErrPresetExists   = errors.New("preset already exists")
)
