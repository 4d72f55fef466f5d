package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustamrustamv/UEMS/internal/domain/event"
	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
)

// IntentResolver looks a payment up by its gateway correlation id. It is the
// fallback when a webhook event carries no payment id in its metadata, which
// Stripe does not guarantee on charge-level events.
type IntentResolver interface {
	GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error)
}

// ReconciliationService decides and applies payment state transitions. It is
// the only writer of payment status and of the ledger; webhook deliveries and
// admin actions both funnel through Apply.
type ReconciliationService struct {
	store     domainRepo.ReconciliationStore
	resolver  IntentResolver
	publisher event.Publisher
	logger    *zap.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	store domainRepo.ReconciliationStore,
	resolver IntentResolver,
	publisher event.Publisher,
	logger *zap.Logger,
) *ReconciliationService {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &ReconciliationService{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
	}
}

// Apply runs one transition request through the atomic unit and emits an
// outcome event whatever the decision. Duplicate is a normal outcome, not an
// error; rejected transitions leave the record unchanged.
func (s *ReconciliationService) Apply(ctx context.Context, req domainRepo.TransitionRequest) (*domainRepo.TransitionResult, error) {
	if err := validateTransitionRequest(req); err != nil {
		return nil, err
	}

	result, err := s.store.ApplyTransition(ctx, req)
	if err != nil {
		// Storage failure is the fatal-only case: the caller must not
		// assume any side effect occurred.
		return nil, err
	}

	switch result.Outcome {
	case event.OutcomeApplied:
		s.logger.Info("Payment transition applied",
			zap.String("payment_id", req.PaymentID.String()),
			zap.String("prior_status", string(result.PriorStatus)),
			zap.String("new_status", string(result.NewStatus)),
			zap.String("source", string(req.Provenance.Source)))
	case event.OutcomeDuplicate:
		s.logger.Info("Duplicate event delivery suppressed",
			zap.String("payment_id", req.PaymentID.String()),
			zap.String("event_id", req.Provenance.EventID))
	case event.OutcomeRejected:
		s.logger.Warn("Payment transition rejected",
			zap.String("payment_id", req.PaymentID.String()),
			zap.String("requested_status", string(req.Status)),
			zap.String("reason", result.Reason))
	}

	s.emit(ctx, req, result)

	return result, nil
}

// ProcessWebhookEvent applies a verified, normalized gateway event. Events
// whose type maps to no transition are acknowledged without touching any
// record. Correlation prefers the payment id from event metadata; without it
// the payment is resolved through its intent id, and an event carrying
// neither is refused as ErrMissingCorrelation.
func (s *ReconciliationService) ProcessWebhookEvent(ctx context.Context, ev *gateway.Event) (*domainRepo.TransitionResult, error) {
	if ev.Status == nil {
		s.logger.Info("Unhandled webhook event type acknowledged",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type))
		return nil, nil
	}

	paymentID := ev.PaymentID
	if paymentID == nil {
		if ev.IntentID == "" || s.resolver == nil {
			return nil, fmt.Errorf("event %s (%s): %w", ev.ID, ev.Type, domainErrors.ErrMissingCorrelation)
		}
		payment, err := s.resolver.GetByIntentID(ctx, ev.IntentID)
		if err != nil {
			return nil, fmt.Errorf("event %s (%s) intent %s: %w", ev.ID, ev.Type, ev.IntentID, err)
		}
		s.logger.Info("Payment resolved via intent correlation",
			zap.String("event_id", ev.ID),
			zap.String("intent_id", ev.IntentID),
			zap.String("payment_id", payment.ID.String()))
		paymentID = &payment.ID
	}

	return s.Apply(ctx, domainRepo.TransitionRequest{
		PaymentID: *paymentID,
		Status:    *ev.Status,
		Provenance: domainRepo.Provenance{
			Source:  model.ProvenanceWebhook,
			EventID: ev.ID,
		},
		RawData: ev.Raw,
		Note:    fmt.Sprintf("via webhook event %s", ev.Type),
	})
}

func (s *ReconciliationService) emit(ctx context.Context, req domainRepo.TransitionRequest, result *domainRepo.TransitionResult) {
	outcome := event.Outcome{
		PaymentID:   req.PaymentID,
		PriorStatus: result.PriorStatus,
		NewStatus:   result.NewStatus,
		Kind:        result.Outcome,
		Source:      req.Provenance.Source,
		EventID:     req.Provenance.EventID,
		ActorID:     req.Provenance.ActorID,
		Reason:      result.Reason,
		OccurredAt:  time.Now(),
	}

	// Best-effort: the transition is already committed, a consumer outage
	// must not fail the apply call.
	if err := s.publisher.Publish(ctx, outcome); err != nil {
		s.logger.Error("Failed to publish outcome event",
			zap.String("payment_id", req.PaymentID.String()),
			zap.String("kind", string(outcome.Kind)),
			zap.Error(err))
	}
}

func validateTransitionRequest(req domainRepo.TransitionRequest) error {
	if !req.Status.Valid() {
		return fmt.Errorf("unknown payment status: %q", req.Status)
	}

	switch req.Provenance.Source {
	case model.ProvenanceWebhook:
		if req.Provenance.EventID == "" {
			return fmt.Errorf("webhook provenance requires an external event id")
		}
	case model.ProvenanceAdmin:
		if req.Provenance.ActorID == "" {
			return fmt.Errorf("admin provenance requires an actor id")
		}
	default:
		return fmt.Errorf("unknown provenance source: %q", req.Provenance.Source)
	}

	return nil
}
