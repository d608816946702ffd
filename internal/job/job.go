package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State represents the queue-level lifecycle of a job.
type State string

// Possible job states. A job is live in waiting, active, delayed or paused;
// resolved jobs are stale entries kept until the next enqueue sweeps them.
const (
	StateWaiting  State = "waiting"
	StateActive   State = "active"
	StateDelayed  State = "delayed"
	StatePaused   State = "paused"
	StateResolved State = "resolved"

	// StateAbsent is a lookup result, never stored: no job with that id exists.
	StateAbsent State = "absent"
)

// Live reports whether the state counts as a live queue entry. Enqueuing over
// a live job id is a conflict; enqueuing over a resolved one sweeps it first.
func (s State) Live() bool {
	switch s {
	case StateWaiting, StateActive, StateDelayed, StatePaused:
		return true
	default:
		return false
	}
}

// IDFor derives the deterministic job id for a generation attempt. It is the
// only place job identity is defined: one attempt maps to exactly one job id,
// so at most one live queue entry can exist per attempt.
func IDFor(generationID uuid.UUID) string {
	return "itinerary-" + generationID.String()
}

// Payload carries everything a worker needs to execute one generation
// attempt without further orchestrator involvement.
type Payload struct {
	Cities       []string  `json:"cities"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	MinBudget    int       `json:"min_budget"`
	MaxBudget    int       `json:"max_budget"`
	Interests    []string  `json:"interests"`
	Currency     string    `json:"currency"`
	ItineraryID  uuid.UUID `json:"itinerary_id"`
	GenerationID uuid.UUID `json:"generation_id"`
	TripID       uuid.UUID `json:"trip_id"`
}

// Record is the durable form of a queued job.
type Record struct {
	ID        string
	Payload   []byte
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the interface for persisting jobs.
type Store interface {
	// CreateJob persists a new job record.
	// Returns store.ErrJobExists if a job with the same id already exists.
	CreateJob(ctx context.Context, rec *Record) error

	// GetJob retrieves a job by id.
	// Returns store.ErrJobNotFound if no such job exists.
	GetJob(ctx context.Context, id string) (*Record, error)

	// UpdateJobState moves a job to the given state.
	// Returns store.ErrJobNotFound if no such job exists.
	UpdateJobState(ctx context.Context, id string, state State) error

	// DeleteJob removes a job record.
	// Returns store.ErrJobNotFound if no such job exists.
	DeleteJob(ctx context.Context, id string) error

	// ListJobsByState retrieves all jobs in the given state, oldest first.
	ListJobsByState(ctx context.Context, state State) ([]*Record, error)
}
