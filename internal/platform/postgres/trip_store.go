package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// PostgresTripStore implements the store.TripStore interface using a
// PostgreSQL database as the storage backend.
type PostgresTripStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTripStore creates a new PostgreSQL implementation of the
// TripStore interface.
func NewPostgresTripStore(db store.DBTX, logger *slog.Logger) *PostgresTripStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTripStore{
		db:     db,
		logger: logger.With(slog.String("component", "trip_store")),
	}
}

// Ensure PostgresTripStore implements store.TripStore
var _ store.TripStore = (*PostgresTripStore)(nil)

// WithTx returns a new TripStore that uses the provided transaction.
func (s *PostgresTripStore) WithTx(tx *sql.Tx) store.TripStore {
	return &PostgresTripStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TripStore.Create
func (s *PostgresTripStore) Create(ctx context.Context, trip *domain.Trip) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := trip.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO trips (id, user_id, itinerary_id, trip_name, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		trip.ID,
		trip.UserID,
		trip.ItineraryID,
		trip.TripName,
		trip.StartDate,
		trip.EndDate,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrItineraryNotFound
		}
		log.Error("failed to create trip",
			slog.String("error", err.Error()),
			slog.String("trip_id", trip.ID.String()))
		return store.NewStoreError("trip", "create", "insert failed", err)
	}

	return nil
}

// GetByID implements store.TripStore.GetByID
func (s *PostgresTripStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, itinerary_id, trip_name, start_date, end_date, created_at, updated_at
		FROM trips
		WHERE id = $1
	`
	var trip domain.Trip
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&trip.ID,
		&trip.UserID,
		&trip.ItineraryID,
		&trip.TripName,
		&trip.StartDate,
		&trip.EndDate,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTripNotFound
		}
		log.Error("failed to get trip",
			slog.String("error", err.Error()),
			slog.String("trip_id", id.String()))
		return nil, store.NewStoreError("trip", "get", "query failed", err)
	}

	return &trip, nil
}

// GetNotificationTarget implements store.TripStore.GetNotificationTarget
func (s *PostgresTripStore) GetNotificationTarget(ctx context.Context, tripID uuid.UUID) (*store.NotificationTarget, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT t.trip_name, u.email
		FROM trips t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1
	`
	var target store.NotificationTarget
	err := s.db.QueryRowContext(ctx, query, tripID).Scan(&target.TripName, &target.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTripNotFound
		}
		log.Error("failed to resolve notification target",
			slog.String("error", err.Error()),
			slog.String("trip_id", tripID.String()))
		return nil, fmt.Errorf("failed to resolve notification target: %w", err)
	}

	return &target, nil
}
