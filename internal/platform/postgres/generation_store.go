package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

const generationColumns = `id, itinerary_id, status, attempt_number, generation_key,
	generated_plan, error_message, meta, created_at, started_at, completed_at`

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the
// GenerationStore interface.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure PostgresGenerationStore implements store.GenerationStore
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// WithTx returns a new GenerationStore that uses the provided transaction.
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.GenerationStore.Create
func (s *PostgresGenerationStore) Create(ctx context.Context, gen *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := gen.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	plan, err := marshalPlan(gen.GeneratedPlan)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO itinerary_generations (id, itinerary_id, status, attempt_number, generation_key,
			generated_plan, error_message, meta, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		gen.ID,
		gen.ItineraryID,
		gen.Status,
		gen.AttemptNumber,
		gen.GenerationKey,
		plan,
		gen.ErrorMessage,
		nullableJSON(gen.Meta),
		gen.CreatedAt,
		gen.StartedAt,
		gen.CompletedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrItineraryNotFound
		}
		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", gen.ID.String()))
		return store.NewStoreError("generation", "create", "insert failed", err)
	}

	return nil
}

// GetByID implements store.GenerationStore.GetByID
func (s *PostgresGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM itinerary_generations WHERE id = $1`
	return s.scanGeneration(ctx, s.db.QueryRowContext(ctx, query, id))
}

// Update implements store.GenerationStore.Update
func (s *PostgresGenerationStore) Update(ctx context.Context, gen *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := gen.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	plan, err := marshalPlan(gen.GeneratedPlan)
	if err != nil {
		return err
	}

	query := `
		UPDATE itinerary_generations
		SET status = $1, attempt_number = $2, generation_key = $3, generated_plan = $4,
			error_message = $5, meta = $6, started_at = $7, completed_at = $8
		WHERE id = $9
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		gen.Status,
		gen.AttemptNumber,
		gen.GenerationKey,
		plan,
		gen.ErrorMessage,
		nullableJSON(gen.Meta),
		gen.StartedAt,
		gen.CompletedAt,
		gen.ID,
	)

	if err != nil {
		log.Error("failed to update generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", gen.ID.String()))
		return store.NewStoreError("generation", "update", "update failed", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrGenerationNotFound
	}

	return nil
}

// GetLatestByItinerary implements store.GenerationStore.GetLatestByItinerary
func (s *PostgresGenerationStore) GetLatestByItinerary(ctx context.Context, itineraryID uuid.UUID) (*domain.Generation, error) {
	query := `
		SELECT ` + generationColumns + `
		FROM itinerary_generations
		WHERE itinerary_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanGeneration(ctx, s.db.QueryRowContext(ctx, query, itineraryID))
}

// GetRetryableByItinerary implements store.GenerationStore.GetRetryableByItinerary
func (s *PostgresGenerationStore) GetRetryableByItinerary(ctx context.Context, itineraryID uuid.UUID) (*domain.Generation, error) {
	query := `
		SELECT ` + generationColumns + `
		FROM itinerary_generations
		WHERE itinerary_id = $1 AND status != $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanGeneration(ctx, s.db.QueryRowContext(ctx, query, itineraryID, domain.GenerationStatusCompleted))
}

// HasLiveByItinerary implements store.GenerationStore.HasLiveByItinerary
func (s *PostgresGenerationStore) HasLiveByItinerary(ctx context.Context, itineraryID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM itinerary_generations
			WHERE itinerary_id = $1 AND status IN ($2, $3)
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, itineraryID,
		domain.GenerationStatusPending, domain.GenerationStatusRunning).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check live generations: %w", err)
	}
	return exists, nil
}

// scanGeneration scans a single generation row.
func (s *PostgresGenerationStore) scanGeneration(ctx context.Context, row *sql.Row) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		gen         domain.Generation
		planJSON    []byte
		metaJSON    []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&gen.ID,
		&gen.ItineraryID,
		&gen.Status,
		&gen.AttemptNumber,
		&gen.GenerationKey,
		&planJSON,
		&gen.ErrorMessage,
		&metaJSON,
		&gen.CreatedAt,
		&gen.StartedAt,
		&completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to scan generation row", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to scan generation row: %w", err)
	}

	if completedAt.Valid {
		t := completedAt.Time
		gen.CompletedAt = &t
	}
	if len(planJSON) > 0 {
		var plan domain.Plan
		if err := json.Unmarshal(planJSON, &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generated plan: %w", err)
		}
		gen.GeneratedPlan = &plan
	}
	if len(metaJSON) > 0 {
		gen.Meta = json.RawMessage(metaJSON)
	}

	return &gen, nil
}

// marshalPlan prepares the nullable jsonb plan column.
func marshalPlan(plan *domain.Plan) ([]byte, error) {
	if plan == nil {
		return nil, nil
	}
	b, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generated plan: %w", err)
	}
	return b, nil
}

// nullableJSON passes raw json through, mapping empty to NULL.
func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
