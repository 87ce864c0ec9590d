package process

import (
	"errors"
	"fmt"
)

// ErrorKind classifies supervisor failures so callers can branch on the
// kind instead of parsing messages.
type ErrorKind string

// Error kinds.
const (
	KindInvalidCommand ErrorKind = "INVALID_COMMAND"
	KindSpawnFailure   ErrorKind = "SPAWN_FAILURE"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindAlreadyRunning ErrorKind = "ALREADY_RUNNING"
	KindSignalFailure  ErrorKind = "SIGNAL_FAILURE"
)

// Sentinel errors for use with errors.Is. Matching is by kind only.
var (
	ErrInvalidCommand = &Error{Kind: KindInvalidCommand, Message: "invalid command"}
	ErrSpawnFailure   = &Error{Kind: KindSpawnFailure, Message: "failed to spawn process"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "service not running"}
	ErrAlreadyRunning = &Error{Kind: KindAlreadyRunning, Message: "service already running"}
	ErrSignalFailure  = &Error{Kind: KindSignalFailure, Message: "failed to signal process"}
)

// Error is a supervisor error with a kind and optional context.
type Error struct {
	Kind      ErrorKind
	ServiceID int64
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.ServiceID != 0 {
		msg = fmt.Sprintf("%s (service %d)", msg, e.ServiceID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a supervisor error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, serviceID int64, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		ServiceID: serviceID,
		Message:   message,
		Cause:     cause,
	}
}

// KindOf returns the kind of a supervisor error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
