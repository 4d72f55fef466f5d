package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rustamrustamv/UEMS/internal/domain/model"
)

// Gateway defines the interface for external payment gateways (Stripe, etc.).
// Calls are synchronous over the network boundary with no local retry policy;
// callers bound them with a context deadline. The gateway must not be assumed
// idempotent - the local idempotency index, not gateway retries, protects
// local state.
type Gateway interface {
	// CreateIntent creates a payment intent for client-side confirmation.
	// Correlation metadata carries the local payment id so webhook events
	// can be routed back to the owning record.
	CreateIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error)

	// CreateRefund issues a refund against a previously succeeded intent
	CreateRefund(ctx context.Context, req *CreateRefundRequest) (*CreateRefundResponse, error)

	// VerifyWebhook authenticates a raw webhook delivery against the shared
	// secret and normalizes it into an Event. It returns
	// errors.ErrInvalidSignature or errors.ErrMalformedPayload (wrapped) when
	// the delivery cannot be trusted or understood.
	VerifyWebhook(payload []byte, signature string) (*Event, error)

	// Name returns the gateway name
	Name() string
}

// CreateIntentRequest is a gateway-agnostic intent creation request
type CreateIntentRequest struct {
	PaymentID   uuid.UUID         `json:"payment_id"`
	AmountMinor int64             `json:"amount_minor"` // smallest currency unit
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreateIntentResponse is the result of intent creation
type CreateIntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	CustomerID   string `json:"customer_id,omitempty"`
}

// CreateRefundRequest asks the gateway to refund a succeeded intent
type CreateRefundRequest struct {
	IntentID string `json:"intent_id"`
	Reason   string `json:"reason,omitempty"`
}

// CreateRefundResponse is the result of a refund call. RefundID doubles as
// the idempotency key for the subsequent local transition, so a crash between
// the gateway call and the local apply is safely retryable.
type CreateRefundResponse struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
}

// Event is a verified, normalized webhook notification
type Event struct {
	// ID is the gateway-assigned event id, unique per logical event across
	// redeliveries
	ID string `json:"id"`
	// Type is the gateway's declared event type
	Type string `json:"type"`
	// PaymentID is the local payment id carried in correlation metadata.
	// Nil when the event does not reference a local payment.
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	// IntentID is the gateway intent the event refers to. It is the
	// correlation fallback when metadata lacks the payment id, which happens
	// on charge-level events such as out-of-band refunds.
	IntentID string `json:"intent_id,omitempty"`
	// Status is the target status implied by the event type. Nil for event
	// types that produce no transition; those are acknowledged and logged
	// only.
	Status *model.PaymentStatus `json:"status,omitempty"`
	// Raw is the decoded event object for ledger provenance
	Raw model.JSONB `json:"raw,omitempty"`
	// CreatedAt is the gateway-side event generation time
	CreatedAt time.Time `json:"created_at"`
}

// GatewayError carries a gateway-reported failure
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *GatewayError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
