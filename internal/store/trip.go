package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
)

// NotificationTarget is the contact information the worker needs to notify a
// trip's owner about a generation outcome.
type NotificationTarget struct {
	TripName string
	Email    string
}

// TripStore defines the interface for trip data persistence.
type TripStore interface {
	// Create saves a new trip to the store.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by its unique ID.
	// Returns ErrTripNotFound if the trip does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)

	// GetNotificationTarget resolves the owning user's email and the trip's
	// display name for notification delivery.
	// Returns ErrTripNotFound if the trip does not exist.
	GetNotificationTarget(ctx context.Context, tripID uuid.UUID) (*NotificationTarget, error)

	// WithTx returns a new TripStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TripStore
}
