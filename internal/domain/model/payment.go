package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// legalTransitions is the single source of truth for the payment state
// machine. Any edge not listed here is rejected by the reconciliation engine.
var legalTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusSucceeded:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
}

// Valid reports whether the status is one of the five known states
func (s PaymentStatus) Valid() bool {
	_, ok := legalTransitions[s]
	return ok
}

// Terminal reports whether the status accepts no further transitions.
// SUCCEEDED is not terminal: it still admits the refund edge.
func (s PaymentStatus) Terminal() bool {
	return s.Valid() && len(legalTransitions[s]) == 0
}

// CanTransitionTo reports whether the edge s -> next is legal
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentType categorizes what a payment is for
type PaymentType string

const (
	PaymentTypeTuition PaymentType = "tuition"
	PaymentTypeFees    PaymentType = "fees"
	PaymentTypeBooks   PaymentType = "books"
	PaymentTypeOther   PaymentType = "other"
)

// Valid reports whether the payment type is recognized
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeTuition, PaymentTypeFees, PaymentTypeBooks, PaymentTypeOther:
		return true
	}
	return false
}

// Payment represents a payment record. Status is mutated exclusively by the
// reconciliation engine; the amount is fixed at creation and the gateway
// intent id is set at most once and never changed.
type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;default:'USD'" json:"currency"`
	Status            PaymentStatus   `gorm:"size:20;not null;index" json:"status"`
	PaymentType       PaymentType     `gorm:"size:20;not null" json:"payment_type"`
	GatewayIntentID   *string         `gorm:"column:gateway_intent_id;unique;size:255" json:"gateway_intent_id,omitempty"`
	GatewayCustomerID *string         `gorm:"column:gateway_customer_id;size:255" json:"gateway_customer_id,omitempty"`
	Semester          *string         `gorm:"size:20;index" json:"semester,omitempty"`
	Year              *int            `gorm:"index" json:"year,omitempty"`
	Description       *string         `json:"description,omitempty"`
	Metadata          JSONB           `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Relations
	History []PaymentHistory `gorm:"foreignKey:PaymentID" json:"history,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
