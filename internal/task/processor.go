package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/generation"
	"github.com/tripbuddy/tripbuddy-api/internal/job"
	"github.com/tripbuddy/tripbuddy-api/internal/notify"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// Common errors for the processor
var (
	ErrNilDB           = errors.New("db cannot be nil")
	ErrNilPlanner      = errors.New("planner cannot be nil")
	ErrNilNotifier     = errors.New("notifier cannot be nil")
	ErrNilStore        = errors.New("store cannot be nil")
	ErrStaleGeneration = errors.New("generation already completed")
)

// Processor executes one generation job payload end to end.
type Processor interface {
	// Process runs the generation attempt the payload describes. A nil
	// return means the attempt resolved (completed or failed) and its
	// outcome was durably recorded; an error means infrastructure trouble
	// and the job should stay live for redelivery.
	Process(ctx context.Context, payload job.Payload) error
}

// GenerationProcessor drives a single generation attempt: it takes ownership
// of the attempt row, calls the planner, commits the outcome atomically, and
// sends exactly one outcome notification. Notification failures are logged
// and never alter the recorded outcome.
type GenerationProcessor struct {
	itineraries store.ItineraryStore
	generations store.GenerationStore
	trips       store.TripStore
	planner     generation.Planner
	notifier    notify.Notifier
	logger      *slog.Logger

	// runTx wraps store.RunInTransaction over the configured database;
	// swappable in tests.
	runTx func(ctx context.Context, fn store.TxFn) error
}

// NewGenerationProcessor creates a processor wired to the given database and
// stores.
func NewGenerationProcessor(
	db *sql.DB,
	itineraries store.ItineraryStore,
	generations store.GenerationStore,
	trips store.TripStore,
	planner generation.Planner,
	notifier notify.Notifier,
	logger *slog.Logger,
) (*GenerationProcessor, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if itineraries == nil || generations == nil || trips == nil {
		return nil, ErrNilStore
	}
	if planner == nil {
		return nil, ErrNilPlanner
	}
	if notifier == nil {
		return nil, ErrNilNotifier
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GenerationProcessor{
		itineraries: itineraries,
		generations: generations,
		trips:       trips,
		planner:     planner,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "generation_processor")),
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
	}, nil
}

// Ensure GenerationProcessor implements Processor
var _ Processor = (*GenerationProcessor)(nil)

// Process implements Processor.Process.
func (p *GenerationProcessor) Process(ctx context.Context, payload job.Payload) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("generation_id", payload.GenerationID.String()),
		slog.String("itinerary_id", payload.ItineraryID.String()))

	gen, err := p.generations.GetByID(ctx, payload.GenerationID)
	if err != nil {
		return fmt.Errorf("failed to load generation: %w", err)
	}

	if err := p.takeOwnership(ctx, gen, log); err != nil {
		if errors.Is(err, ErrStaleGeneration) {
			log.Warn("skipping redelivered job for completed generation")
			return nil
		}
		return err
	}

	result, planErr := p.planner.GeneratePlan(ctx, generation.Params{
		Cities:    payload.Cities,
		StartDate: payload.StartDate,
		EndDate:   payload.EndDate,
		MinBudget: payload.MinBudget,
		MaxBudget: payload.MaxBudget,
		Interests: payload.Interests,
		Currency:  payload.Currency,
	})
	if planErr == nil {
		if err := result.Plan.Validate(); err != nil {
			planErr = fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
	}

	var outcome notify.Outcome
	if planErr != nil {
		log.Warn("generation attempt failed",
			slog.Int("attempt_number", gen.AttemptNumber),
			slog.String("error", planErr.Error()))
		if err := p.commitFailure(ctx, gen, planErr); err != nil {
			return err
		}
		outcome = notify.OutcomeFailed
	} else {
		log.Info("generation attempt succeeded",
			slog.Int("attempt_number", gen.AttemptNumber),
			slog.Int("day_count", len(result.Plan.Days)))
		if err := p.commitSuccess(ctx, gen, result); err != nil {
			return err
		}
		outcome = notify.OutcomeCompleted
	}

	p.sendNotification(ctx, payload, outcome, log)
	return nil
}

// takeOwnership moves the attempt into running state and persists it before
// any planner work happens. A running row is resumed as-is: the crashed
// worker already counted the attempt, and the redelivered job finishes it.
func (p *GenerationProcessor) takeOwnership(ctx context.Context, gen *domain.Generation, log *slog.Logger) error {
	switch gen.Status {
	case domain.GenerationStatusCompleted:
		return ErrStaleGeneration
	case domain.GenerationStatusRunning:
		log.Warn("resuming interrupted generation attempt",
			slog.Int("attempt_number", gen.AttemptNumber))
		return nil
	}

	if err := gen.Start(); err != nil {
		return fmt.Errorf("failed to start generation: %w", err)
	}
	if err := p.generations.Update(ctx, gen); err != nil {
		return fmt.Errorf("failed to persist running generation: %w", err)
	}

	log.Info("generation attempt started", slog.Int("attempt_number", gen.AttemptNumber))
	return nil
}

// commitSuccess records the completed outcome atomically. The itinerary
// projection is written first and the attempt row last; the attempt row is
// the authoritative record on any discrepancy.
func (p *GenerationProcessor) commitSuccess(ctx context.Context, gen *domain.Generation, result *generation.Result) error {
	return p.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txItineraries := p.itineraries.WithTx(tx)
		txGenerations := p.generations.WithTx(tx)

		itinerary, err := txItineraries.GetByID(ctx, gen.ItineraryID)
		if err != nil {
			return fmt.Errorf("failed to load itinerary: %w", err)
		}

		itinerary.MarkCompleted(result.Plan, result.Meta, time.Now().UTC())
		if err := txItineraries.Update(ctx, itinerary); err != nil {
			return fmt.Errorf("failed to update itinerary: %w", err)
		}

		if err := gen.Succeed(result.Plan, result.Key, result.Meta); err != nil {
			return err
		}
		if err := txGenerations.Update(ctx, gen); err != nil {
			return fmt.Errorf("failed to update generation: %w", err)
		}

		return nil
	})
}

// commitFailure records the failed outcome atomically. The itinerary keeps
// any previously generated plan; only its status and attempt count move.
func (p *GenerationProcessor) commitFailure(ctx context.Context, gen *domain.Generation, cause error) error {
	return p.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txItineraries := p.itineraries.WithTx(tx)
		txGenerations := p.generations.WithTx(tx)

		itinerary, err := txItineraries.GetByID(ctx, gen.ItineraryID)
		if err != nil {
			return fmt.Errorf("failed to load itinerary: %w", err)
		}

		itinerary.MarkFailed()
		if err := txItineraries.Update(ctx, itinerary); err != nil {
			return fmt.Errorf("failed to update itinerary: %w", err)
		}

		if err := gen.Fail(cause.Error()); err != nil {
			return err
		}
		if err := txGenerations.Update(ctx, gen); err != nil {
			return fmt.Errorf("failed to update generation: %w", err)
		}

		return nil
	})
}

// sendNotification delivers the single outcome notification for the attempt.
// Failures here are logged only: the outcome is already durable.
func (p *GenerationProcessor) sendNotification(ctx context.Context, payload job.Payload, outcome notify.Outcome, log *slog.Logger) {
	target, err := p.trips.GetNotificationTarget(ctx, payload.TripID)
	if err != nil {
		log.Error("failed to resolve notification target",
			slog.String("error", err.Error()),
			slog.String("trip_id", payload.TripID.String()))
		return
	}

	err = p.notifier.Notify(ctx, notify.Message{
		To:       target.Email,
		TripName: target.TripName,
		TripID:   payload.TripID,
		Outcome:  outcome,
	})
	if err != nil {
		log.Error("failed to send outcome notification",
			slog.String("error", err.Error()),
			slog.String("trip_id", payload.TripID.String()),
			slog.String("outcome", string(outcome)))
	}
}
