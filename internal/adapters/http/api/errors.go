package api

import (
	"errors"
	"fmt"
	"net/http"

	model "github.com/okian/overlay/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrInvalid    = errors.New("invalid record")
	ErrInternal   = errors.New("internal error")
)

// KindError tags an error with the operation that produced it and a sentinel kind.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// NewKind returns a KindError without an underlying cause.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// classify maps a store or decode error to a kind and HTTP status.
func classify(err error) (error, int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidType), errors.Is(err, ErrBadRequest):
		return ErrBadRequest, http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrInvalidRecord):
		return ErrInvalid, http.StatusBadRequest, "invalid_record"
	default:
		return ErrInternal, http.StatusInternalServerError, "internal"
	}
}
