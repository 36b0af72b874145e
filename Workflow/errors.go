package Workflow

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was refused
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindInternal     Kind = "internal"
)

// NoActiveTimeTracking is the advisory returned when a transition needs a work session
const NoActiveTimeTracking = "No active time tracking found for this task."

// Error is the structured result of a refused or failed operation
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflict(err error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: err}
}

func invalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err; unknown errors are internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var we *Error
	if errors.As(err, &we) && we.Kind != KindInternal {
		return we.Message
	}
	return "Internal Server Error"
}
