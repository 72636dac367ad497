package event

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes event errors.
type ErrorCode string

const (
	// ErrCodeSessionNotOpen indicates End was called without a matching Begin.
	ErrCodeSessionNotOpen ErrorCode = "SESSION_NOT_OPEN"
)

// SessionError reports misuse of an event session.
type SessionError struct {
	Code    ErrorCode
	Message string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSessionNotOpen reports whether err is a SessionNotOpen error.
func IsSessionNotOpen(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code == ErrCodeSessionNotOpen
	}
	return false
}

// ListenerError wraps an error returned by a listener.
type ListenerError struct {
	Event string
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener for %q: %v", e.Event, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
