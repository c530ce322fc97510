package llm

import (
	"context"
	"errors"
	"fmt"
)

// GatewayError is the only error type returned by Gateway operations.
type GatewayError struct {
	// Op is the gateway operation that failed
	Op string

	// Type categorizes the error
	Type string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error
	Err error
}

// Error types.
const (
	ErrorTypeBackend  = "backend"
	ErrorTypeEmpty    = "empty"
	ErrorTypeCanceled = "canceled"
)

// Gateway operations.
const (
	OpSynthesize = "synthesize"
	OpExplain    = "explain"
	OpChat       = "chat"
)

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("AI %s %s error: %s", e.Op, e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps a failure reported by Genkit or the model provider.
func NewBackendError(op string, err error) *GatewayError {
	return &GatewayError{
		Op:      op,
		Type:    ErrorTypeBackend,
		Message: err.Error(),
		Err:     err,
	}
}

// NewEmptyResponseError reports a model reply with no usable text.
func NewEmptyResponseError(op string) *GatewayError {
	return &GatewayError{
		Op:      op,
		Type:    ErrorTypeEmpty,
		Message: "the model returned an empty response",
	}
}

// NewCanceledError reports a call abandoned because its context ended.
func NewCanceledError(op string, err error) *GatewayError {
	return &GatewayError{
		Op:      op,
		Type:    ErrorTypeCanceled,
		Message: "request canceled",
		Err:     err,
	}
}

// asGatewayError converts anything returned from a flow into a *GatewayError.
func asGatewayError(op string, err error) *GatewayError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCanceledError(op, err)
	}
	return NewBackendError(op, err)
}
