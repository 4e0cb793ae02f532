package model

import "errors"

// Sentinel kinds for record errors.
var (
	// ErrInvalidType marks a POST field whose JSON type does not match the record.
	ErrInvalidType = errors.New("invalid field type")
	// ErrInvalidRecord marks a well-typed value outside the allowed range.
	ErrInvalidRecord = errors.New("invalid record")
)
