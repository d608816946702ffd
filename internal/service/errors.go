// Package service provides the application-level orchestration for trips and
// itinerary generation.
package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors callers check with errors.Is().
// The API layer maps these to HTTP status codes.
var (
	// ErrDuplicateRequest indicates an identical itinerary request is already
	// pending generation. The check is advisory; the API layer maps this to
	// HTTP 409 Conflict.
	ErrDuplicateRequest = errors.New("an identical itinerary request is already pending")

	// ErrJobAlreadyQueued indicates a live generation job already exists for
	// the itinerary. The API layer maps this to HTTP 409 Conflict.
	ErrJobAlreadyQueued = errors.New("a generation job is already queued for this itinerary")
)

// ItineraryServiceError wraps unexpected failures from the itinerary service
// with the operation that produced them.
type ItineraryServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ItineraryServiceError.
func (e *ItineraryServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("itinerary service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("itinerary service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ItineraryServiceError) Unwrap() error {
	return e.Err
}

// NewItineraryServiceError creates a new ItineraryServiceError.
func NewItineraryServiceError(operation, message string, err error) *ItineraryServiceError {
	return &ItineraryServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
