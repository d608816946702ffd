package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Trip
var (
	ErrEmptyTripID        = errors.New("trip ID cannot be empty")
	ErrEmptyTripUserID    = errors.New("trip user ID cannot be empty")
	ErrEmptyTripItinerary = errors.New("trip itinerary ID cannot be empty")
	ErrInvalidTripDates   = errors.New("trip end date cannot be before start date")
)

// Trip is a user's planned journey. It references (not owns) an Itinerary and
// supplies the orchestrator with the notification target and display name.
type Trip struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ItineraryID uuid.UUID `json:"itinerary_id"`
	TripName    string    `json:"trip_name"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTrip creates a new Trip for the given user and itinerary. The trip name
// is derived from the destination cities.
func NewTrip(userID, itineraryID uuid.UUID, cities []string, startDate, endDate time.Time) (*Trip, error) {
	now := time.Now().UTC()
	trip := &Trip{
		ID:          uuid.New(),
		UserID:      userID,
		ItineraryID: itineraryID,
		TripName:    fmt.Sprintf("Trip to %s", strings.Join(cities, ", ")),
		StartDate:   startDate,
		EndDate:     endDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := trip.Validate(); err != nil {
		return nil, err
	}

	return trip, nil
}

// Validate checks if the Trip has valid data.
func (t *Trip) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTripID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTripUserID
	}

	if t.ItineraryID == uuid.Nil {
		return ErrEmptyTripItinerary
	}

	if t.EndDate.Before(t.StartDate) {
		return ErrInvalidTripDates
	}

	return nil
}

// Days returns the number of daily entries the itinerary should cover,
// rounded up so a partial final day still gets planned.
func (t *Trip) Days() int {
	days := int(math.Ceil(t.EndDate.Sub(t.StartDate).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}
