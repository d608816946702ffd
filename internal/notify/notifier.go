// Package notify delivers generation outcome notifications to trip owners.
// Delivery is fire-and-forget: the worker records the outcome durably first
// and a notification failure never changes the generation result.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// Outcome is the generation result a notification reports.
type Outcome string

// Possible notification outcomes
const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Message carries everything needed to notify a trip owner about a
// generation outcome.
type Message struct {
	To       string
	TripName string
	TripID   uuid.UUID
	Outcome  Outcome
}

// Notifier defines the interface for delivering outcome notifications.
type Notifier interface {
	// Notify delivers the outcome message. Implementations should respect
	// context cancellation where their transport allows it.
	Notify(ctx context.Context, msg Message) error
}
