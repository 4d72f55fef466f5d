package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rustamrustamv/UEMS/internal/domain/event"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
)

// Provenance carries who or what requested a transition. Exactly one of
// EventID (webhook path) or ActorID (admin path) identifies the requester;
// EventID, when present, is the idempotency key.
type Provenance struct {
	Source  model.ProvenanceSource
	EventID string
	ActorID string
}

// TransitionRequest asks the store to move a payment to a new status
type TransitionRequest struct {
	PaymentID  uuid.UUID
	Status     model.PaymentStatus
	Provenance Provenance
	RawData    model.JSONB
	Note       string
}

// TransitionResult reports what the atomic unit decided
type TransitionResult struct {
	Outcome     event.OutcomeKind
	PriorStatus model.PaymentStatus
	NewStatus   model.PaymentStatus
	// Reason is set for rejected outcomes
	Reason string
}

// ReconciliationStore owns the atomic transition unit: reading the current
// status, the duplicate and legality checks, the status write, the
// idempotency insert and the ledger append are one transaction, serialized
// per payment id by a row-level lock. Unrelated payments never contend.
type ReconciliationStore interface {
	ApplyTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
}
