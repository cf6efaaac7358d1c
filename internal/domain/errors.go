package domain

import "errors"

var (
	// ErrValidation marks malformed input rejected before any persistence.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown user, group or counterpart.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated marks an operation attempted without a bound identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict marks a uniqueness violation, e.g. a duplicate handle.
	ErrConflict = errors.New("conflict")
)

// Error codes carried by error frames on live connections.
const (
	CodeValidation      = "validation"
	CodeNotFound        = "not_found"
	CodeUnauthenticated = "unauthenticated"
	CodeConflict        = "conflict"
	CodeInternal        = "internal"
)

// ErrorCode classifies err into a wire error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// ErrorEvent builds an error frame for err. Internal errors carry no detail.
func ErrorEvent(err error) Event {
	code := ErrorCode(err)
	evt := Event{Type: EventError, Error: code}
	if code != CodeInternal {
		evt.Detail = err.Error()
	}
	return evt
}
