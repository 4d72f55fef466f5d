package errors

import (
	"errors"
	"fmt"
)

// Webhook input errors. These are logged as security/integrity events and
// acknowledged to the gateway so it stops redelivering; they never reach the
// reconciliation engine and never produce a ledger entry.
var (
	ErrInvalidSignature   = errors.New("webhook signature verification failed")
	ErrMalformedPayload   = errors.New("webhook payload failed to parse")
	ErrMissingCorrelation = errors.New("webhook event metadata lacks a payment id")
)

// ErrPaymentNotFound is returned when a payment id references no record
var ErrPaymentNotFound = errors.New("payment not found")

// IllegalTransitionError is returned when a requested status edge is not
// permitted by the payment state machine. The payment is left unchanged.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal payment transition: %s -> %s", e.From, e.To)
}

// NewIllegalTransitionError creates a new IllegalTransitionError
func NewIllegalTransitionError(from, to string) *IllegalTransitionError {
	return &IllegalTransitionError{From: from, To: to}
}
