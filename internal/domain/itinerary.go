package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// GenerateStatus represents the aggregate generation state of an itinerary.
// It mirrors the outcome of the most recently resolved Generation for the
// itinerary and stays pending while one is in flight.
type GenerateStatus string

// Possible aggregate status values
const (
	GenerateStatusPending   GenerateStatus = "pending"
	GenerateStatusCompleted GenerateStatus = "completed"
	GenerateStatusFailed    GenerateStatus = "failed"
)

// DefaultCurrency is applied when a request does not specify one.
const DefaultCurrency = "Rupees"

// Common validation errors for Itinerary
var (
	ErrEmptyItineraryID       = errors.New("itinerary ID cannot be empty")
	ErrEmptyItineraryCities   = errors.New("itinerary must have at least one city")
	ErrInvalidItineraryBudget = errors.New("itinerary budget range is invalid")
	ErrInvalidGenerateStatus  = errors.New("invalid itinerary generate status")
)

// Itinerary holds the parameters a plan is generated from and caches the
// latest generated plan. The cached plan is a denormalized projection of the
// owning Generation record; on discrepancy the Generation is authoritative.
type Itinerary struct {
	ID                    uuid.UUID       `json:"id"`
	Cities                []string        `json:"cities"`
	Interests             []string        `json:"interests"`
	MinBudget             int             `json:"min_budget"`
	MaxBudget             int             `json:"max_budget"`
	Currency              string          `json:"currency"`
	GeneratedPlan         *Plan           `json:"generated_plan,omitempty"`
	GenerateStatus        GenerateStatus  `json:"generate_status"`
	GenerationAttempts    int             `json:"generation_attempts"`
	GenerationCompletedAt *time.Time      `json:"generation_completed_at,omitempty"`
	GenerationMeta        json.RawMessage `json:"generation_meta,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// NewItinerary creates a new Itinerary in pending state with no plan.
// Returns an error if validation fails.
func NewItinerary(cities []string, interests []string, minBudget, maxBudget int, currency string) (*Itinerary, error) {
	if currency == "" {
		currency = DefaultCurrency
	}

	now := time.Now().UTC()
	itinerary := &Itinerary{
		ID:             uuid.New(),
		Cities:         cities,
		Interests:      interests,
		MinBudget:      minBudget,
		MaxBudget:      maxBudget,
		Currency:       currency,
		GenerateStatus: GenerateStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := itinerary.Validate(); err != nil {
		return nil, err
	}

	return itinerary, nil
}

// Validate checks if the Itinerary has valid data.
func (i *Itinerary) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyItineraryID
	}

	if len(i.Cities) == 0 {
		return ErrEmptyItineraryCities
	}

	if i.MinBudget < 0 || i.MaxBudget < i.MinBudget {
		return ErrInvalidItineraryBudget
	}

	if !isValidGenerateStatus(i.GenerateStatus) {
		return ErrInvalidGenerateStatus
	}

	return nil
}

// MarkCompleted caches the generated plan and marks the aggregate completed.
// The attempt counter tracks how many generation runs this itinerary has seen.
func (i *Itinerary) MarkCompleted(plan *Plan, meta json.RawMessage, completedAt time.Time) {
	i.GeneratedPlan = plan
	i.GenerateStatus = GenerateStatusCompleted
	i.GenerationAttempts++
	i.GenerationCompletedAt = &completedAt
	i.GenerationMeta = meta
	i.UpdatedAt = time.Now().UTC()
}

// MarkFailed marks the aggregate failed. The last-known-good plan, if any,
// is left in place so a failure never destroys a prior successful plan.
func (i *Itinerary) MarkFailed() {
	i.GenerateStatus = GenerateStatusFailed
	i.GenerationAttempts++
	i.UpdatedAt = time.Now().UTC()
}

// MarkPending resets the aggregate to pending when a new generation run is
// requested.
func (i *Itinerary) MarkPending() {
	i.GenerateStatus = GenerateStatusPending
	i.UpdatedAt = time.Now().UTC()
}

// isValidGenerateStatus checks if the given status is a valid GenerateStatus.
func isValidGenerateStatus(status GenerateStatus) bool {
	switch status {
	case GenerateStatusPending, GenerateStatusCompleted, GenerateStatusFailed:
		return true
	default:
		return false
	}
}
