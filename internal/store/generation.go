package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
)

// GenerationStore defines the interface for generation attempt persistence.
// Generation rows are append-style: they are created and updated but never
// deleted, forming the audit trail of every run.
type GenerationStore interface {
	// Create saves a new generation record.
	Create(ctx context.Context, gen *domain.Generation) error

	// GetByID retrieves a generation by its unique ID.
	// Returns ErrGenerationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error)

	// Update saves changes to an existing generation.
	// Returns ErrGenerationNotFound if it does not exist.
	Update(ctx context.Context, gen *domain.Generation) error

	// GetLatestByItinerary returns the most recently created generation for
	// the itinerary, regardless of status. Returns ErrGenerationNotFound if
	// the itinerary has no generations.
	GetLatestByItinerary(ctx context.Context, itineraryID uuid.UUID) (*domain.Generation, error)

	// GetRetryableByItinerary returns the most recent non-completed
	// generation (pending or failed) for the itinerary, the row a
	// regeneration request re-arms. Returns ErrGenerationNotFound if none.
	GetRetryableByItinerary(ctx context.Context, itineraryID uuid.UUID) (*domain.Generation, error)

	// HasLiveByItinerary reports whether the itinerary currently has a
	// non-terminal (pending or running) generation.
	HasLiveByItinerary(ctx context.Context, itineraryID uuid.UUID) (bool, error)

	// WithTx returns a new GenerationStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) GenerationStore
}
