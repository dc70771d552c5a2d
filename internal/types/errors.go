package types

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks an external call that ran out of time. It is matched with errors.Is
	// through ExternalServiceError.
	ErrTimeout = errors.New("external call timed out")

	// ErrSchedulingInfeasible is reported as an itinerary warning, never returned.
	ErrSchedulingInfeasible = errors.New("no candidate fits any day")

	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionIncomplete = errors.New("session has not collected all trip requirements")
)

// ExternalServiceError wraps any failure of an LLM, embedding, catalog or oracle call.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Timeout reports whether the call failed because its deadline expired.
func (e *ExternalServiceError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

func NewExternalServiceError(service, op string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Op: op, Err: err}
}

// ValidationError rejects a malformed request such as a TripIntent with days < 1.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ParseError is raised when LLM output cannot be decoded. It is always recovered by a
// deterministic fallback and only surfaces in logs.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsExternalServiceError(err error) bool {
	var e *ExternalServiceError
	return errors.As(err, &e)
}
