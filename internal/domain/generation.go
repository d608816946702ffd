package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus represents the lifecycle state of a single generation
// attempt.
type GenerationStatus string

// Possible generation status values
const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusRunning   GenerationStatus = "running"
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// Common errors for Generation
var (
	ErrEmptyGenerationID        = errors.New("generation ID cannot be empty")
	ErrEmptyGenerationItinerary = errors.New("generation itinerary ID cannot be empty")
	ErrInvalidGenerationStatus  = errors.New("invalid generation status")

	// ErrGenerationInFlight signals a conflicting transition: the attempt is
	// pending or running and must resolve before it can be re-armed.
	ErrGenerationInFlight = errors.New("a generation is already in flight")

	// ErrGenerationNotRunning signals a succeed/fail commit against an
	// attempt no worker owns.
	ErrGenerationNotRunning = errors.New("generation is not running")
)

// Generation is one execution lifecycle record of trying to produce a plan
// for an itinerary. Rows are never deleted: together they form the audit
// trail of every attempt. At most one Generation per itinerary may be
// non-terminal at a time; the orchestrator enforces this before enqueue.
type Generation struct {
	ID            uuid.UUID        `json:"id"`
	ItineraryID   uuid.UUID        `json:"itinerary_id"`
	Status        GenerationStatus `json:"status"`
	AttemptNumber int              `json:"attempt_number"`
	GenerationKey string           `json:"generation_key"`
	GeneratedPlan *Plan            `json:"generated_plan,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	Meta          json.RawMessage  `json:"meta,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	StartedAt     time.Time        `json:"started_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// NewGeneration creates a new Generation in pending state with attempt
// number 0 and an empty generation key.
func NewGeneration(itineraryID uuid.UUID) (*Generation, error) {
	now := time.Now().UTC()
	gen := &Generation{
		ID:            uuid.New(),
		ItineraryID:   itineraryID,
		Status:        GenerationStatusPending,
		AttemptNumber: 0,
		GenerationKey: "",
		CreatedAt:     now,
		StartedAt:     now,
	}

	if err := gen.Validate(); err != nil {
		return nil, err
	}

	return gen, nil
}

// Validate checks if the Generation has valid data.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGenerationID
	}

	if g.ItineraryID == uuid.Nil {
		return ErrEmptyGenerationItinerary
	}

	if !isValidGenerationStatus(g.Status) {
		return ErrInvalidGenerationStatus
	}

	return nil
}

// Terminal reports whether the attempt has resolved. A completed or failed
// attempt never transitions back; retry goes through Rearm (failed only) or a
// brand-new Generation row (completed).
func (g *Generation) Terminal() bool {
	return g.Status == GenerationStatusCompleted || g.Status == GenerationStatusFailed
}

// Start transitions the attempt to running on worker pickup. Legal from
// pending and failed (queue redelivery after a crash may hand a failed row
// back to a worker). Increments the attempt number and clears any prior
// result so the run starts clean.
func (g *Generation) Start() error {
	if g.Status != GenerationStatusPending && g.Status != GenerationStatusFailed {
		return fmt.Errorf("cannot start generation in status %q: %w", g.Status, ErrInvalidGenerationStatus)
	}

	g.Status = GenerationStatusRunning
	g.StartedAt = time.Now().UTC()
	g.AttemptNumber++
	g.GeneratedPlan = nil
	g.ErrorMessage = ""
	return nil
}

// Succeed resolves a running attempt as completed, recording the plan, the
// input fingerprint, and provider usage metadata. Any prior error is cleared.
func (g *Generation) Succeed(plan *Plan, key string, meta json.RawMessage) error {
	if g.Status != GenerationStatusRunning {
		return fmt.Errorf("cannot complete generation in status %q: %w", g.Status, ErrGenerationNotRunning)
	}

	now := time.Now().UTC()
	g.Status = GenerationStatusCompleted
	g.GeneratedPlan = plan
	g.GenerationKey = key
	g.Meta = meta
	g.ErrorMessage = ""
	g.CompletedAt = &now
	return nil
}

// Fail resolves a running attempt as failed with the given error message.
// The plan field is left untouched: a failed run never records a plan.
func (g *Generation) Fail(errMsg string) error {
	if g.Status != GenerationStatusRunning {
		return fmt.Errorf("cannot fail generation in status %q: %w", g.Status, ErrGenerationNotRunning)
	}

	now := time.Now().UTC()
	g.Status = GenerationStatusFailed
	g.ErrorMessage = errMsg
	g.CompletedAt = &now
	return nil
}

// Rearm resets a failed attempt back to pending for an explicit retry. Only
// legal from failed: a pending or running attempt means a generation is
// already in flight and re-arming it would double-run the same work, so the
// caller gets ErrGenerationInFlight. Completed attempts are immutable; a new
// request against a completed itinerary creates a new Generation instead.
func (g *Generation) Rearm() error {
	switch g.Status {
	case GenerationStatusFailed:
		// fall through to reset
	case GenerationStatusPending, GenerationStatusRunning:
		return ErrGenerationInFlight
	default:
		return fmt.Errorf("cannot rearm generation in status %q: %w", g.Status, ErrInvalidGenerationStatus)
	}

	g.Status = GenerationStatusPending
	g.StartedAt = time.Now().UTC()
	g.CompletedAt = nil
	g.ErrorMessage = ""
	g.GeneratedPlan = nil
	g.GenerationKey = ""
	g.AttemptNumber++
	return nil
}

// isValidGenerationStatus checks if the given status is a valid GenerationStatus.
func isValidGenerationStatus(status GenerationStatus) bool {
	switch status {
	case GenerationStatusPending, GenerationStatusRunning,
		GenerationStatusCompleted, GenerationStatusFailed:
		return true
	default:
		return false
	}
}
