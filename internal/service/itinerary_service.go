package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/job"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// JobQueue is the slice of the queue surface the orchestrator needs.
type JobQueue interface {
	// Enqueue persists and dispatches a job; a live duplicate id returns
	// job.ErrDuplicateJob.
	Enqueue(ctx context.Context, id string, payload job.Payload) error

	// Lookup returns the job's current state, job.StateAbsent if none.
	Lookup(ctx context.Context, id string) (job.State, error)

	// Remove deletes a non-active job entry; absent ids are a no-op.
	Remove(ctx context.Context, id string) error
}

// CreateTripParams carries the validated inputs for a new trip request.
type CreateTripParams struct {
	Cities    []string
	StartDate time.Time
	EndDate   time.Time
	MinBudget int
	MaxBudget int
	Interests []string
	Currency  string
}

// TripCreation is the result of a create or regenerate call: the identifiers
// the client polls with while the plan is generated in the background.
type TripCreation struct {
	Trip         *domain.Trip
	Itinerary    *domain.Itinerary
	GenerationID uuid.UUID
}

// TripDetails is the read model for a trip: the trip row plus the itinerary
// projection, reconciled against the latest generation attempt.
type TripDetails struct {
	Trip      *domain.Trip
	Itinerary *domain.Itinerary
}

// ItineraryService orchestrates trip creation and itinerary generation: it
// owns the transactional boundary around itinerary/trip/generation rows and
// the enqueue protocol, but never executes generation itself.
type ItineraryService struct {
	itineraries store.ItineraryStore
	generations store.GenerationStore
	trips       store.TripStore
	queue       JobQueue
	logger      *slog.Logger

	// runTx wraps store.RunInTransaction over the configured database;
	// swappable in tests.
	runTx func(ctx context.Context, fn store.TxFn) error
}

// NewItineraryService creates a new ItineraryService.
func NewItineraryService(
	db *sql.DB,
	itineraries store.ItineraryStore,
	generations store.GenerationStore,
	trips store.TripStore,
	queue JobQueue,
	logger *slog.Logger,
) (*ItineraryService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if itineraries == nil || generations == nil || trips == nil {
		return nil, errors.New("stores cannot be nil")
	}
	if queue == nil {
		return nil, errors.New("queue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ItineraryService{
		itineraries: itineraries,
		generations: generations,
		trips:       trips,
		queue:       queue,
		logger:      logger.With(slog.String("component", "itinerary_service")),
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
	}, nil
}

// CreateTripWithItinerary handles a new trip request: it rejects duplicate
// pending requests, creates the itinerary, trip and first generation attempt
// in one transaction, and enqueues exactly one generation job.
func (s *ItineraryService) CreateTripWithItinerary(
	ctx context.Context,
	userID uuid.UUID,
	params CreateTripParams,
) (*TripCreation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Advisory duplicate check: identical parameters with a generation still
	// pending means the same request is already in the pipeline.
	existing, err := s.itineraries.FindPendingByParams(ctx,
		params.Cities, params.MinBudget, params.MaxBudget, params.Interests)
	if err != nil && !errors.Is(err, store.ErrItineraryNotFound) {
		return nil, NewItineraryServiceError("create_trip", "duplicate check failed", err)
	}
	if existing != nil {
		// The projection is advisory; the attempt record decides. A pending
		// itinerary with no live attempt is a stale projection and does not
		// block the new request.
		live, lerr := s.generations.HasLiveByItinerary(ctx, existing.ID)
		if lerr != nil {
			return nil, NewItineraryServiceError("create_trip", "duplicate check failed", lerr)
		}
		if live {
			log.Info("rejecting duplicate itinerary request",
				slog.String("existing_itinerary_id", existing.ID.String()))
			return nil, ErrDuplicateRequest
		}
		log.Warn("pending itinerary has no live attempt, allowing new request",
			slog.String("stale_itinerary_id", existing.ID.String()))
	}

	itinerary, err := domain.NewItinerary(params.Cities, params.Interests,
		params.MinBudget, params.MaxBudget, params.Currency)
	if err != nil {
		return nil, err
	}

	trip, err := domain.NewTrip(userID, itinerary.ID, params.Cities, params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}

	gen, err := domain.NewGeneration(itinerary.ID)
	if err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.itineraries.WithTx(tx).Create(ctx, itinerary); err != nil {
			return err
		}
		if err := s.trips.WithTx(tx).Create(ctx, trip); err != nil {
			return err
		}
		return s.generations.WithTx(tx).Create(ctx, gen)
	})
	if err != nil {
		return nil, NewItineraryServiceError("create_trip", "failed to persist trip", err)
	}

	if err := s.enqueue(ctx, trip, itinerary, gen); err != nil {
		return nil, err
	}

	log.Info("trip created and generation enqueued",
		slog.String("trip_id", trip.ID.String()),
		slog.String("itinerary_id", itinerary.ID.String()),
		slog.String("generation_id", gen.ID.String()))

	return &TripCreation{Trip: trip, Itinerary: itinerary, GenerationID: gen.ID}, nil
}

// Regenerate requests a fresh generation run for an existing trip. A
// completed itinerary gets a brand-new Generation; a failed one re-arms its
// most recent attempt under the same id; a pending one is already in flight
// and returns domain.ErrGenerationInFlight unchanged.
func (s *ItineraryService) Regenerate(ctx context.Context, tripID uuid.UUID) (*TripCreation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	itinerary, err := s.itineraries.GetByID(ctx, trip.ItineraryID)
	if err != nil {
		return nil, err
	}

	// Attempt records are authoritative: a live attempt means generation is
	// in flight no matter what the cached projection claims.
	live, err := s.generations.HasLiveByItinerary(ctx, itinerary.ID)
	if err != nil {
		return nil, NewItineraryServiceError("regenerate", "live attempt check failed", err)
	}
	if live {
		log.Info("rejecting regeneration, attempt already live",
			slog.String("itinerary_id", itinerary.ID.String()))
		return nil, domain.ErrGenerationInFlight
	}

	var gen *domain.Generation

	switch itinerary.GenerateStatus {
	case domain.GenerateStatusPending:
		return nil, domain.ErrGenerationInFlight

	case domain.GenerateStatusCompleted:
		// Completed attempts are immutable; regeneration is a new row.
		gen, err = domain.NewGeneration(itinerary.ID)
		if err != nil {
			return nil, err
		}

		itinerary.MarkPending()
		err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			if err := s.generations.WithTx(tx).Create(ctx, gen); err != nil {
				return err
			}
			return s.itineraries.WithTx(tx).Update(ctx, itinerary)
		})
		if err != nil {
			return nil, NewItineraryServiceError("regenerate", "failed to create generation", err)
		}

	case domain.GenerateStatusFailed:
		gen, err = s.generations.GetRetryableByItinerary(ctx, itinerary.ID)
		if err != nil {
			return nil, NewItineraryServiceError("regenerate", "no retryable generation", err)
		}

		// The re-armed attempt reuses its job id, so a stale queue entry
		// from the failed run has to be swept before enqueueing again.
		if err := s.sweepStaleJob(ctx, job.IDFor(gen.ID), log); err != nil {
			return nil, err
		}

		if err := gen.Rearm(); err != nil {
			return nil, err
		}

		itinerary.MarkPending()
		err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			if err := s.generations.WithTx(tx).Update(ctx, gen); err != nil {
				return err
			}
			return s.itineraries.WithTx(tx).Update(ctx, itinerary)
		})
		if err != nil {
			return nil, NewItineraryServiceError("regenerate", "failed to rearm generation", err)
		}

	default:
		return nil, domain.ErrInvalidGenerateStatus
	}

	if err := s.enqueue(ctx, trip, itinerary, gen); err != nil {
		return nil, err
	}

	log.Info("regeneration enqueued",
		slog.String("trip_id", trip.ID.String()),
		slog.String("generation_id", gen.ID.String()),
		slog.Int("attempt_number", gen.AttemptNumber))

	return &TripCreation{Trip: trip, Itinerary: itinerary, GenerationID: gen.ID}, nil
}

// GetTrip returns the trip with its itinerary projection. When the cached
// projection disagrees with a resolved generation attempt, the attempt wins.
func (s *ItineraryService) GetTrip(ctx context.Context, tripID uuid.UUID) (*TripDetails, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	itinerary, err := s.itineraries.GetByID(ctx, trip.ItineraryID)
	if err != nil {
		return nil, err
	}

	gen, err := s.generations.GetLatestByItinerary(ctx, itinerary.ID)
	if err != nil {
		if errors.Is(err, store.ErrGenerationNotFound) {
			return &TripDetails{Trip: trip, Itinerary: itinerary}, nil
		}
		return nil, err
	}

	reconcileProjection(itinerary, gen, log)
	return &TripDetails{Trip: trip, Itinerary: itinerary}, nil
}

// enqueue persists exactly one job for the generation attempt.
func (s *ItineraryService) enqueue(ctx context.Context, trip *domain.Trip, itinerary *domain.Itinerary, gen *domain.Generation) error {
	payload := job.Payload{
		Cities:       itinerary.Cities,
		StartDate:    trip.StartDate,
		EndDate:      trip.EndDate,
		MinBudget:    itinerary.MinBudget,
		MaxBudget:    itinerary.MaxBudget,
		Interests:    itinerary.Interests,
		Currency:     itinerary.Currency,
		ItineraryID:  itinerary.ID,
		GenerationID: gen.ID,
		TripID:       trip.ID,
	}

	if err := s.queue.Enqueue(ctx, job.IDFor(gen.ID), payload); err != nil {
		if errors.Is(err, job.ErrDuplicateJob) {
			return ErrJobAlreadyQueued
		}
		return NewItineraryServiceError("enqueue", "failed to enqueue generation job", err)
	}

	return nil
}

// sweepStaleJob enforces the before-enqueue guard: a live job means the work
// is already queued or executing (conflict); a resolved entry is removed so
// the job id can be reused.
func (s *ItineraryService) sweepStaleJob(ctx context.Context, jobID string, log *slog.Logger) error {
	state, err := s.queue.Lookup(ctx, jobID)
	if err != nil {
		return NewItineraryServiceError("regenerate", "job lookup failed", err)
	}

	switch {
	case state.Live():
		log.Info("rejecting regeneration, job still live",
			slog.String("job_id", jobID),
			slog.String("job_state", string(state)))
		return ErrJobAlreadyQueued
	case state == job.StateAbsent:
		return nil
	default:
		if err := s.queue.Remove(ctx, jobID); err != nil {
			return NewItineraryServiceError("regenerate", "failed to remove stale job", err)
		}
		log.Debug("removed stale job before re-enqueue", slog.String("job_id", jobID))
		return nil
	}
}

// reconcileProjection overwrites the cached itinerary view with the outcome
// of a resolved generation attempt when the two disagree.
func reconcileProjection(itinerary *domain.Itinerary, gen *domain.Generation, log *slog.Logger) {
	if !gen.Terminal() {
		return
	}

	want := domain.GenerateStatusFailed
	if gen.Status == domain.GenerationStatusCompleted {
		want = domain.GenerateStatusCompleted
	}

	if itinerary.GenerateStatus == want {
		return
	}

	log.Warn("itinerary projection out of sync with generation, attempt wins",
		slog.String("itinerary_id", itinerary.ID.String()),
		slog.String("generation_id", gen.ID.String()),
		slog.String("itinerary_status", string(itinerary.GenerateStatus)),
		slog.String("generation_status", string(gen.Status)))

	itinerary.GenerateStatus = want
	if gen.Status == domain.GenerationStatusCompleted {
		itinerary.GeneratedPlan = gen.GeneratedPlan
		itinerary.GenerationCompletedAt = gen.CompletedAt
		itinerary.GenerationMeta = gen.Meta
	}
}
