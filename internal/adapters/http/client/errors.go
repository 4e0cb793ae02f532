package client

import "errors"

// Sentinel kinds for store client errors.
var (
	// ErrRejected is returned when the store answers 400 to a POST.
	ErrRejected = errors.New("record rejected by store")
	// ErrUnexpectedStatus is returned for any other non-200 answer.
	ErrUnexpectedStatus = errors.New("unexpected store response")
)
