package core

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned by Controller.Run when the user presses Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// ValidationError represents a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SessionError is a failure that ends the session, such as the shell
// going away while a line is being forwarded.
type SessionError struct {
	Operation string
	Message   string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %s", e.Operation, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
