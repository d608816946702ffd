package generation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tripbuddy/tripbuddy-api/internal/domain"
)

// Params carries the inputs for one plan generation run.
type Params struct {
	Cities    []string
	StartDate time.Time
	EndDate   time.Time
	MinBudget int
	MaxBudget int
	Interests []string
	Currency  string
}

// Result is the outcome of a successful generation run: the structured plan,
// the fingerprint of the inputs it was generated from, and opaque provider
// usage metadata (token/cost accounting).
type Result struct {
	Plan *domain.Plan
	Key  string
	Meta json.RawMessage
}

// Planner defines the interface for generating travel plans. The call is
// long-running (seconds to minutes) and failure-prone; implementations must
// honor context cancellation and bound the call with a provider-side timeout.
type Planner interface {
	// GeneratePlan produces a day-by-day plan for the given parameters.
	// Returns an error from this package's taxonomy if generation fails.
	GeneratePlan(ctx context.Context, params Params) (*Result, error)
}
