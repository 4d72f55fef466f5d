package model

import (
	"time"

	"github.com/google/uuid"
)

// ProvenanceSource identifies who observed a state transition
type ProvenanceSource string

const (
	// ProvenanceWebhook marks entries recorded from a gateway webhook delivery
	ProvenanceWebhook ProvenanceSource = "webhook"
	// ProvenanceAdmin marks entries recorded from an admin-initiated action
	ProvenanceAdmin ProvenanceSource = "admin-action"
	// ProvenanceSystem marks the initial entry written when the record is
	// created PENDING, before any gateway event exists
	ProvenanceSystem ProvenanceSource = "system"
)

// PaymentHistory is the append-only ledger of observed state transitions for
// a payment. Entries are never mutated or removed.
type PaymentHistory struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID uuid.UUID        `gorm:"type:uuid;not null;index" json:"payment_id"`
	Status    PaymentStatus    `gorm:"size:20;not null" json:"status"`
	Source    ProvenanceSource `gorm:"size:20;not null" json:"source"`
	EventID   *string          `gorm:"size:255;index" json:"event_id,omitempty"`
	ActorID   *string          `gorm:"size:255" json:"actor_id,omitempty"`
	RawData   JSONB            `gorm:"type:jsonb" json:"raw_data,omitempty"`
	Note      *string          `json:"note,omitempty"`
	Timestamp time.Time        `gorm:"index" json:"timestamp"`
}

// TableName specifies the table name for GORM
func (PaymentHistory) TableName() string {
	return "payment_history"
}
