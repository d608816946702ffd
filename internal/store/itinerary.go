package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
)

// ItineraryStore defines the interface for itinerary data persistence.
type ItineraryStore interface {
	// Create saves a new itinerary to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, itinerary *domain.Itinerary) error

	// GetByID retrieves an itinerary by its unique ID.
	// Returns ErrItineraryNotFound if the itinerary does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Itinerary, error)

	// Update saves changes to an existing itinerary.
	// Returns ErrItineraryNotFound if the itinerary does not exist.
	Update(ctx context.Context, itinerary *domain.Itinerary) error

	// FindPendingByParams looks for a pending-status itinerary with exactly
	// the given parameters (cities and interests in request order, budgets
	// equal). Used for the advisory duplicate-request check; returns
	// ErrItineraryNotFound when no such itinerary exists.
	FindPendingByParams(ctx context.Context, cities []string, minBudget, maxBudget int, interests []string) (*domain.Itinerary, error)

	// WithTx returns a new ItineraryStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) ItineraryStore
}
