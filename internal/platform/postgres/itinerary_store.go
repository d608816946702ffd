package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// listSeparator joins city and interest lists for storage. Exact string
// equality on the joined form is what the advisory dedup check compares.
const listSeparator = ", "

func joinList(items []string) string {
	return strings.Join(items, listSeparator)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

// PostgresItineraryStore implements the store.ItineraryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresItineraryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItineraryStore creates a new PostgreSQL implementation of the
// ItineraryStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresItineraryStore(db store.DBTX, logger *slog.Logger) *PostgresItineraryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresItineraryStore{
		db:     db,
		logger: logger.With(slog.String("component", "itinerary_store")),
	}
}

// Ensure PostgresItineraryStore implements store.ItineraryStore
var _ store.ItineraryStore = (*PostgresItineraryStore)(nil)

// WithTx returns a new ItineraryStore that uses the provided transaction.
func (s *PostgresItineraryStore) WithTx(tx *sql.Tx) store.ItineraryStore {
	return &PostgresItineraryStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ItineraryStore.Create
func (s *PostgresItineraryStore) Create(ctx context.Context, itinerary *domain.Itinerary) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := itinerary.Validate(); err != nil {
		log.Warn("itinerary validation failed during create",
			slog.String("error", err.Error()),
			slog.String("itinerary_id", itinerary.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	plan, meta, err := marshalPlanAndMeta(itinerary.GeneratedPlan, itinerary.GenerationMeta)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO itineraries (id, cities, interests, min_budget, max_budget, currency,
			generated_plan, generate_status, generation_attempts, generation_completed_at,
			generation_meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		itinerary.ID,
		joinList(itinerary.Cities),
		joinList(itinerary.Interests),
		itinerary.MinBudget,
		itinerary.MaxBudget,
		itinerary.Currency,
		plan,
		itinerary.GenerateStatus,
		itinerary.GenerationAttempts,
		itinerary.GenerationCompletedAt,
		meta,
		itinerary.CreatedAt,
		itinerary.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create itinerary",
			slog.String("error", err.Error()),
			slog.String("itinerary_id", itinerary.ID.String()))
		return store.NewStoreError("itinerary", "create", "insert failed", err)
	}

	return nil
}

// GetByID implements store.ItineraryStore.GetByID
func (s *PostgresItineraryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Itinerary, error) {
	query := `
		SELECT id, cities, interests, min_budget, max_budget, currency,
			generated_plan, generate_status, generation_attempts, generation_completed_at,
			generation_meta, created_at, updated_at
		FROM itineraries
		WHERE id = $1
	`
	return s.scanItinerary(ctx, s.db.QueryRowContext(ctx, query, id))
}

// FindPendingByParams implements store.ItineraryStore.FindPendingByParams.
// The comparison is exact string/int equality on the stored forms.
func (s *PostgresItineraryStore) FindPendingByParams(
	ctx context.Context,
	cities []string,
	minBudget, maxBudget int,
	interests []string,
) (*domain.Itinerary, error) {
	query := `
		SELECT id, cities, interests, min_budget, max_budget, currency,
			generated_plan, generate_status, generation_attempts, generation_completed_at,
			generation_meta, created_at, updated_at
		FROM itineraries
		WHERE generate_status = $1 AND cities = $2 AND min_budget = $3 AND max_budget = $4 AND interests = $5
		LIMIT 1
	`
	return s.scanItinerary(ctx, s.db.QueryRowContext(ctx, query,
		domain.GenerateStatusPending, joinList(cities), minBudget, maxBudget, joinList(interests)))
}

// Update implements store.ItineraryStore.Update
func (s *PostgresItineraryStore) Update(ctx context.Context, itinerary *domain.Itinerary) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := itinerary.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	plan, meta, err := marshalPlanAndMeta(itinerary.GeneratedPlan, itinerary.GenerationMeta)
	if err != nil {
		return err
	}

	query := `
		UPDATE itineraries
		SET generated_plan = $1, generate_status = $2, generation_attempts = $3,
			generation_completed_at = $4, generation_meta = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		plan,
		itinerary.GenerateStatus,
		itinerary.GenerationAttempts,
		itinerary.GenerationCompletedAt,
		meta,
		time.Now().UTC(),
		itinerary.ID,
	)

	if err != nil {
		log.Error("failed to update itinerary",
			slog.String("error", err.Error()),
			slog.String("itinerary_id", itinerary.ID.String()))
		return store.NewStoreError("itinerary", "update", "update failed", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrItineraryNotFound
	}

	return nil
}

// scanItinerary scans a single itinerary row.
func (s *PostgresItineraryStore) scanItinerary(ctx context.Context, row *sql.Row) (*domain.Itinerary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		itinerary   domain.Itinerary
		cities      string
		interests   string
		planJSON    []byte
		metaJSON    []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&itinerary.ID,
		&cities,
		&interests,
		&itinerary.MinBudget,
		&itinerary.MaxBudget,
		&itinerary.Currency,
		&planJSON,
		&itinerary.GenerateStatus,
		&itinerary.GenerationAttempts,
		&completedAt,
		&metaJSON,
		&itinerary.CreatedAt,
		&itinerary.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrItineraryNotFound
		}
		log.Error("failed to scan itinerary row", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to scan itinerary row: %w", err)
	}

	itinerary.Cities = splitList(cities)
	itinerary.Interests = splitList(interests)
	if completedAt.Valid {
		t := completedAt.Time
		itinerary.GenerationCompletedAt = &t
	}
	if len(planJSON) > 0 {
		var plan domain.Plan
		if err := json.Unmarshal(planJSON, &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generated plan: %w", err)
		}
		itinerary.GeneratedPlan = &plan
	}
	if len(metaJSON) > 0 {
		itinerary.GenerationMeta = json.RawMessage(metaJSON)
	}

	return &itinerary, nil
}

// marshalPlanAndMeta prepares the nullable jsonb columns.
func marshalPlanAndMeta(plan *domain.Plan, meta json.RawMessage) ([]byte, []byte, error) {
	var planJSON []byte
	if plan != nil {
		var err error
		planJSON, err = json.Marshal(plan)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal generated plan: %w", err)
		}
	}

	var metaJSON []byte
	if len(meta) > 0 {
		metaJSON = meta
	}

	return planJSON, metaJSON, nil
}
