package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rustamrustamv/UEMS/internal/domain/model"
)

// PaymentRepository provides read access to payment records and creation of
// new ones. Status mutation is deliberately absent: it happens only through
// the ReconciliationStore.
type PaymentRepository interface {
	// Create persists a new PENDING payment together with its initial
	// ledger entry in one transaction
	Create(ctx context.Context, payment *model.Payment, initial *model.PaymentHistory) error

	// GetByID returns the payment or errors.ErrPaymentNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)

	// GetByIntentID looks a payment up by its gateway correlation id
	GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error)

	// ListByUser returns payments owned by a user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Payment, error)

	// List returns all payments, newest first
	List(ctx context.Context, limit, offset int) ([]*model.Payment, error)
}

// HistoryRepository provides read access to the append-only ledger
type HistoryRepository interface {
	// ListByPayment returns all ledger entries for a payment in append order
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*model.PaymentHistory, error)
}
