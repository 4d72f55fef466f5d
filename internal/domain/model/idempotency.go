package model

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyOutcome records what happened the first time an external event
// id was processed
type IdempotencyOutcome string

const (
	IdempotencyOutcomeApplied  IdempotencyOutcome = "applied"
	IdempotencyOutcomeRejected IdempotencyOutcome = "rejected"
)

// IdempotencyRecord maps a gateway event id to the payment it was applied
// to. The unique index on (payment_id, event_id) enforces duplicate
// suppression at the storage layer, not just in application logic, while an
// event id recorded against one payment never suppresses a transition on
// another. Records are permanent.
type IdempotencyRecord struct {
	ID        int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID   string             `gorm:"not null;size:255;index;uniqueIndex:uidx_payment_event" json:"event_id"`
	PaymentID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uidx_payment_event" json:"payment_id"`
	Outcome   IdempotencyOutcome `gorm:"size:20;not null" json:"outcome"`
	AppliedAt time.Time          `json:"applied_at"`
}

// TableName specifies the table name for GORM
func (IdempotencyRecord) TableName() string {
	return "payment_idempotency_records"
}
