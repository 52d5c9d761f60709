package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClassifierUnavailable reports that the learned classifier could not
	// produce a score. It is absorbed by the scoring strategy and never
	// reaches callers.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrMalformedInput matches every *MalformedInputError.
	ErrMalformedInput = errors.New("malformed input")

	// ErrNotFound is returned by lookups for unknown identifiers.
	ErrNotFound = errors.New("not found")
)

// Error codes carried in APIError responses
const (
	ErrCodeMalformedInput = "MALFORMED_INPUT"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnavailable    = "SERVICE_UNAVAILABLE"
)

// APIError represents the uniform failure response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// MalformedInputError reports a record that cannot be vectorized
type MalformedInputError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *MalformedInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed input: %s", e.Message)
	}
	return fmt.Sprintf("malformed input for field '%s': %s", e.Field, e.Message)
}

// Is lets errors.Is match ErrMalformedInput.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// NewMalformedInputError creates a new MalformedInputError
func NewMalformedInputError(field, message string) *MalformedInputError {
	return &MalformedInputError{
		Field:   field,
		Message: message,
	}
}

// InternalError wraps an unanticipated orchestration failure
type InternalError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *InternalError) Unwrap() error {
	return e.Err
}

// NewInternalError creates a new InternalError
func NewInternalError(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}
