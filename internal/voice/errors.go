package voice

import "errors"

var (
	// ErrEngineUnavailable means the engine cannot produce phrases now and
	// restarting it will not help until listening is toggled.
	ErrEngineUnavailable = errors.New("speech engine unavailable")
	// ErrEngineBusy is returned by Start while a previous session is still open.
	ErrEngineBusy = errors.New("speech engine busy")
)
