package domain

import (
	"errors"
	"fmt"
)

// Error classes surfaced to callers. Match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Error carries a caller-facing message together with its class.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the class so errors.Is(err, ErrConflict) works.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgumentf builds an InvalidArgument error.
func InvalidArgumentf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a Conflict error.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Unauthorizedf builds an Unauthorized error.
func Unauthorizedf(format string, args ...any) error {
	return &Error{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}
