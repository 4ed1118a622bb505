// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Every error returned by the core wraps exactly one of these.
var (
	// ErrNotFound means the entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a name is already taken within the owner's scope.
	ErrConflict = errors.New("conflict")
	// ErrBadRequest means an invariant of the request was violated.
	ErrBadRequest = errors.New("bad request")
	// ErrInternal means an unexpected failure inside a transactional scope.
	ErrInternal = errors.New("internal error")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Kind classifies an error by the taxonomy above.
type Kind int

const (
	// KindUnknown is any error outside the taxonomy.
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindBadRequest
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// NotFoundf returns an ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf returns an ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// BadRequestf returns an ErrBadRequest with a formatted message.
func BadRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// KindOf reports which taxonomy bucket err falls in.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	case errors.Is(err, ErrInternal):
		return KindInternal
	default:
		return KindUnknown
	}
}

// IsDomain reports whether err is a NotFound, Conflict or BadRequest error.
func IsDomain(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindConflict, KindBadRequest:
		return true
	}
	return false
}

// internalError keeps the original cause reachable through errors.Is/As
// while still matching ErrInternal.
type internalError struct {
	cause  error
	action string
}

func (e *internalError) Error() string {
	return fmt.Sprintf("%s: could not %s: %v", ErrInternal, e.action, e.cause)
}

func (e *internalError) Unwrap() []error {
	return []error{ErrInternal, e.cause}
}

// WrapInternal returns domain errors unchanged and wraps anything else as
// ErrInternal, keeping the original message.
func WrapInternal(action string, err error) error {
	if err == nil || IsDomain(err) || errors.Is(err, ErrInternal) {
		return err
	}
	return &internalError{action: action, cause: err}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
