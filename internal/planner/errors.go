package planner

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service matches exactly one of them
// under errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrRender     = errors.New("export failed")
	ErrUpstream   = errors.New("itinerary service failed")

	// ErrInternal covers storage failures that are none of the above.
	ErrInternal = errors.New("internal error")
)

// Error is the failure type returned across the service boundary. Msg is
// safe to show to the caller; Err keeps the underlying cause for logs.
type Error struct {
	Kind error
	Msg  string
	Err  error

	// UpstreamStatus is the collaborator's HTTP status for ErrUpstream, if any.
	UpstreamStatus int
	// UpstreamBody is the collaborator's response body for ErrUpstream, if any.
	UpstreamBody string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationError(msg string, cause error) error {
	return &Error{Kind: ErrValidation, Msg: msg, Err: cause}
}

func permissionError(msg string) error {
	return &Error{Kind: ErrPermission, Msg: msg}
}

func notFoundError(msg string, cause error) error {
	return &Error{Kind: ErrNotFound, Msg: msg, Err: cause}
}

func renderError(msg string, cause error) error {
	return &Error{Kind: ErrRender, Msg: msg, Err: cause}
}

func internalError(msg string, cause error) error {
	return &Error{Kind: ErrInternal, Msg: msg, Err: cause}
}

// outcome names the error kind for metrics labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrInternal):
		return "internal"
	default:
		return "error"
	}
}
