package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rustamrustamv/UEMS/internal/domain/model"
)

// OutcomeKind classifies the result of a reconciliation apply call
type OutcomeKind string

const (
	OutcomeApplied   OutcomeKind = "applied"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeRejected  OutcomeKind = "rejected"
)

// Outcome is emitted for every apply call, whatever its result. Consumers
// (metrics, audit logging) subscribe externally; the engine itself holds no
// counters.
type Outcome struct {
	PaymentID   uuid.UUID              `json:"payment_id"`
	PriorStatus model.PaymentStatus    `json:"prior_status"`
	NewStatus   model.PaymentStatus    `json:"new_status"`
	Kind        OutcomeKind            `json:"kind"`
	Source      model.ProvenanceSource `json:"source"`
	EventID     string                 `json:"event_id,omitempty"`
	ActorID     string                 `json:"actor_id,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Publisher delivers outcome events to external consumers. Publishing is
// best-effort: a failed publish never rolls back an applied transition.
type Publisher interface {
	Publish(ctx context.Context, outcome Outcome) error
}

// NopPublisher discards outcomes
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, outcome Outcome) error {
	return nil
}
