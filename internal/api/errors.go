package api

import (
	"errors"
	"net/http"

	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/service"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors: every entity-specific sentinel wraps store.ErrNotFound
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrJobAlreadyQueued),
		errors.Is(err, domain.ErrGenerationInFlight):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrEmptyItineraryCities),
		errors.Is(err, domain.ErrInvalidItineraryBudget),
		errors.Is(err, domain.ErrInvalidTripDates):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrTripNotFound):
		return "Trip not found"

	case errors.Is(err, store.ErrItineraryNotFound):
		return "Itinerary not found"

	case errors.Is(err, store.ErrGenerationNotFound):
		return "Generation not found"

	case errors.Is(err, service.ErrDuplicateRequest):
		return "An identical itinerary request is already being generated"

	case errors.Is(err, service.ErrJobAlreadyQueued),
		errors.Is(err, domain.ErrGenerationInFlight):
		return "A generation for this itinerary is already in progress"

	case errors.Is(err, domain.ErrEmptyItineraryCities):
		return "At least one city is required"

	case errors.Is(err, domain.ErrInvalidItineraryBudget):
		return "Budget range is invalid"

	case errors.Is(err, domain.ErrInvalidTripDates):
		return "End date cannot be before start date"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}
