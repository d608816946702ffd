package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tripbuddy/tripbuddy-api/internal/job"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// PostgresJobStore implements the job.Store interface using a PostgreSQL
// database as the storage backend. The jobs table is the durable half of the
// queue: the dispatch channel is rebuilt from it on startup.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// job.Store interface.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements job.Store
var _ job.Store = (*PostgresJobStore)(nil)

// CreateJob implements job.Store.CreateJob
func (s *PostgresJobStore) CreateJob(ctx context.Context, rec *job.Record) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO jobs (id, payload, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.Payload, rec.State, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrJobExists
		}
		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", rec.ID))
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob implements job.Store.GetJob
func (s *PostgresJobStore) GetJob(ctx context.Context, id string) (*job.Record, error) {
	query := `
		SELECT id, payload, state, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`
	var rec job.Record
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Payload,
		&rec.State,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &rec, nil
}

// UpdateJobState implements job.Store.UpdateJobState
func (s *PostgresJobStore) UpdateJobState(ctx context.Context, id string, state job.State) error {
	query := `
		UPDATE jobs
		SET state = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, state, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update job state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrJobNotFound
	}

	return nil
}

// DeleteJob implements job.Store.DeleteJob
func (s *PostgresJobStore) DeleteJob(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrJobNotFound
	}

	return nil
}

// ListJobsByState implements job.Store.ListJobsByState
func (s *PostgresJobStore) ListJobsByState(ctx context.Context, state job.State) ([]*job.Record, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, payload, state, created_at, updated_at
		FROM jobs
		WHERE state = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, state)
	if err != nil {
		log.Error("failed to list jobs",
			slog.String("error", err.Error()),
			slog.String("state", string(state)))
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*job.Record
	for rows.Next() {
		var rec job.Record
		if err := rows.Scan(&rec.ID, &rec.Payload, &rec.State, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}

	return records, nil
}
