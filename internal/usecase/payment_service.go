package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
)

// Reconciler is the slice of the reconciliation engine the payment service
// needs for the refund sub-flow
type Reconciler interface {
	Apply(ctx context.Context, req domainRepo.TransitionRequest) (*domainRepo.TransitionResult, error)
}

// PaymentService handles payment creation, refunds and the read models. It
// never mutates payment status itself; the refund sub-flow delegates to the
// reconciliation engine after the gateway confirms.
type PaymentService struct {
	payments       domainRepo.PaymentRepository
	history        domainRepo.HistoryRepository
	reconciler     Reconciler
	gw             gateway.Gateway
	gatewayTimeout time.Duration
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	payments domainRepo.PaymentRepository,
	history domainRepo.HistoryRepository,
	reconciler Reconciler,
	gw gateway.Gateway,
	gatewayTimeout time.Duration,
	logger *zap.Logger,
) *PaymentService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &PaymentService{
		payments:       payments,
		history:        history,
		reconciler:     reconciler,
		gw:             gw,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
	}
}

// CreatePaymentInput carries a payment creation request
type CreatePaymentInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	PaymentType model.PaymentType
	Semester    *string
	Year        *int
	Description *string
	Metadata    model.JSONB
}

// CreatePaymentResult carries the created record and the client secret the
// frontend needs to confirm the intent
type CreatePaymentResult struct {
	Payment      *model.Payment `json:"payment"`
	ClientSecret string         `json:"client_secret"`
}

// CreatePayment creates the gateway intent and then the PENDING record. The
// payment id is allocated up front so the intent's correlation metadata can
// carry it; nothing is persisted until the gateway call returns successfully,
// so a timed-out or failed call leaves no local state behind.
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", input.Amount)
	}
	if !input.PaymentType.Valid() {
		return nil, fmt.Errorf("unknown payment type: %q", input.PaymentType)
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = "USD"
	}

	paymentID := uuid.New()

	description := ""
	if input.Description != nil {
		description = *input.Description
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	intent, err := s.gw.CreateIntent(gwCtx, &gateway.CreateIntentRequest{
		PaymentID:   paymentID,
		AmountMinor: input.Amount.Shift(2).IntPart(),
		Currency:    strings.ToLower(currency),
		Description: description,
		Metadata: map[string]string{
			"payment_id":   paymentID.String(),
			"user_id":      input.UserID.String(),
			"payment_type": string(input.PaymentType),
		},
	})
	if err != nil {
		s.logger.Error("Gateway intent creation failed",
			zap.String("payment_id", paymentID.String()),
			zap.String("user_id", input.UserID.String()),
			zap.Error(err))
		return nil, err
	}

	now := time.Now()
	intentID := intent.IntentID

	payment := &model.Payment{
		ID:              paymentID,
		UserID:          input.UserID,
		Amount:          input.Amount,
		Currency:        currency,
		Status:          model.PaymentStatusPending,
		PaymentType:     input.PaymentType,
		GatewayIntentID: &intentID,
		Semester:        input.Semester,
		Year:            input.Year,
		Description:     input.Description,
		Metadata:        input.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if intent.CustomerID != "" {
		customerID := intent.CustomerID
		payment.GatewayCustomerID = &customerID
	}

	note := "payment intent created"
	initial := &model.PaymentHistory{
		ID:        uuid.New(),
		PaymentID: paymentID,
		Status:    model.PaymentStatusPending,
		Source:    model.ProvenanceSystem,
		EventID:   &intentID,
		Note:      &note,
		Timestamp: now,
	}

	if err := s.payments.Create(ctx, payment, initial); err != nil {
		return nil, err
	}

	s.logger.Info("Payment created",
		zap.String("payment_id", paymentID.String()),
		zap.String("user_id", input.UserID.String()),
		zap.String("amount", input.Amount.String()),
		zap.String("intent_id", intentID))

	return &CreatePaymentResult{
		Payment:      payment,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// RefundResult carries the gateway refund id and the local transition outcome
type RefundResult struct {
	RefundID   string                       `json:"refund_id"`
	Transition *domainRepo.TransitionResult `json:"transition"`
}

// RequestRefund refunds a succeeded payment. Any record not currently
// SUCCEEDED is refused before the gateway is called. The gateway refund id
// serves as the idempotency key for the local transition, so retrying after a
// crash between the gateway call and the local apply is safe.
func (s *PaymentService) RequestRefund(ctx context.Context, paymentID uuid.UUID, actorID, reason string) (*RefundResult, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != model.PaymentStatusSucceeded {
		return nil, domainErrors.NewIllegalTransitionError(string(payment.Status), string(model.PaymentStatusRefunded))
	}
	if payment.GatewayIntentID == nil {
		return nil, fmt.Errorf("payment %s has no gateway correlation id", paymentID)
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	refund, err := s.gw.CreateRefund(gwCtx, &gateway.CreateRefundRequest{
		IntentID: *payment.GatewayIntentID,
		Reason:   reason,
	})
	if err != nil {
		// Reported to the caller directly, not through the ledger; the
		// record stays SUCCEEDED.
		s.logger.Error("Gateway refund failed",
			zap.String("payment_id", paymentID.String()),
			zap.String("actor_id", actorID),
			zap.Error(err))
		return nil, err
	}

	note := fmt.Sprintf("refund %s issued by admin", refund.RefundID)
	if reason != "" {
		note = fmt.Sprintf("%s, reason: %s", note, reason)
	}

	result, err := s.reconciler.Apply(ctx, domainRepo.TransitionRequest{
		PaymentID: paymentID,
		Status:    model.PaymentStatusRefunded,
		Provenance: domainRepo.Provenance{
			Source:  model.ProvenanceAdmin,
			EventID: refund.RefundID,
			ActorID: actorID,
		},
		Note: note,
	})
	if err != nil {
		return nil, err
	}

	return &RefundResult{
		RefundID:   refund.RefundID,
		Transition: result,
	}, nil
}

// GetPayment returns one payment record
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// ListPayments returns payments, optionally scoped to one user
func (s *PaymentService) ListPayments(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*model.Payment, error) {
	if limit < 1 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	if userID != nil {
		return s.payments.ListByUser(ctx, *userID, limit, offset)
	}
	return s.payments.List(ctx, limit, offset)
}

// GetHistory returns the ledger entries for a payment in append order. The
// caller resolves the payment first for its access check, so existence is not
// re-verified here.
func (s *PaymentService) GetHistory(ctx context.Context, paymentID uuid.UUID) ([]*model.PaymentHistory, error) {
	return s.history.ListByPayment(ctx, paymentID)
}
