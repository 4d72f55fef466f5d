package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rustamrustamv/UEMS/internal/domain/event"
	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
)

type reconciliationStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewReconciliationStore creates the store backing the atomic transition unit
func NewReconciliationStore(db *gorm.DB, logger *zap.Logger) domainRepo.ReconciliationStore {
	return &reconciliationStore{
		db:     db,
		logger: logger,
	}
}

// ApplyTransition runs the whole transition as one transaction. The SELECT
// FOR UPDATE on the payment row serializes concurrent applies for the same
// payment id; the loser re-reads the winner's committed status and is
// re-evaluated against it. The unique index on the idempotency event id backs
// the duplicate check at the storage layer.
func (s *reconciliationStore) ApplyTransition(ctx context.Context, req domainRepo.TransitionRequest) (*domainRepo.TransitionResult, error) {
	var result *domainRepo.TransitionResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment model.Payment
		if err := lockForUpdate(tx).
			First(&payment, "id = ?", req.PaymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrPaymentNotFound
			}
			return fmt.Errorf("failed to lock payment row: %w", err)
		}

		// Duplicate suppression comes before the legality check: gateways
		// redeliver events, so a duplicate is a normal outcome. The check is
		// scoped to this payment; an event id recorded against another
		// payment must not suppress this transition.
		if req.Provenance.EventID != "" {
			var count int64
			if err := tx.Model(&model.IdempotencyRecord{}).
				Where("payment_id = ? AND event_id = ?", req.PaymentID, req.Provenance.EventID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check idempotency index: %w", err)
			}
			if count > 0 {
				result = &domainRepo.TransitionResult{
					Outcome:     event.OutcomeDuplicate,
					PriorStatus: payment.Status,
					NewStatus:   payment.Status,
				}
				return nil
			}
		}

		now := time.Now()

		if !payment.Status.CanTransitionTo(req.Status) {
			reason := domainErrors.NewIllegalTransitionError(string(payment.Status), string(req.Status)).Error()

			// The rejection note keeps the ledger path valid: the entry
			// carries the unchanged status, not the refused one.
			note := fmt.Sprintf("rejected transition to %s: %s", req.Status, reason)
			entry := newHistoryEntry(&payment, payment.Status, req, &note, now)
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to append rejection ledger entry: %w", err)
			}

			if req.Provenance.EventID != "" {
				if err := s.insertIdempotencyRecord(tx, req, model.IdempotencyOutcomeRejected, now); err != nil {
					return err
				}
			}

			result = &domainRepo.TransitionResult{
				Outcome:     event.OutcomeRejected,
				PriorStatus: payment.Status,
				NewStatus:   payment.Status,
				Reason:      reason,
			}
			return nil
		}

		if req.Provenance.EventID != "" {
			if err := s.insertIdempotencyRecord(tx, req, model.IdempotencyOutcomeApplied, now); err != nil {
				return err
			}
		}

		prior := payment.Status
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":     req.Status,
			"updated_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}

		var note *string
		if req.Note != "" {
			note = &req.Note
		}
		entry := newHistoryEntry(&payment, req.Status, req, note, now)
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		result = &domainRepo.TransitionResult{
			Outcome:     event.OutcomeApplied,
			PriorStatus: prior,
			NewStatus:   req.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Transition decided",
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("requested_status", string(req.Status)),
		zap.String("outcome", string(result.Outcome)))

	return result, nil
}

// lockForUpdate takes the per-payment row lock. SQLite has no
// SELECT ... FOR UPDATE syntax; its transactions are serialized by the
// database itself, so the clause is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *reconciliationStore) insertIdempotencyRecord(tx *gorm.DB, req domainRepo.TransitionRequest, outcome model.IdempotencyOutcome, now time.Time) error {
	record := &model.IdempotencyRecord{
		EventID:   req.Provenance.EventID,
		PaymentID: req.PaymentID,
		Outcome:   outcome,
		AppliedAt: now,
	}
	if err := tx.Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	return nil
}

func newHistoryEntry(payment *model.Payment, status model.PaymentStatus, req domainRepo.TransitionRequest, note *string, now time.Time) *model.PaymentHistory {
	entry := &model.PaymentHistory{
		ID:        uuid.New(),
		PaymentID: payment.ID,
		Status:    status,
		Source:    req.Provenance.Source,
		RawData:   req.RawData,
		Note:      note,
		Timestamp: now,
	}
	if req.Provenance.EventID != "" {
		eventID := req.Provenance.EventID
		entry.EventID = &eventID
	}
	if req.Provenance.ActorID != "" {
		actorID := req.Provenance.ActorID
		entry.ActorID = &actorID
	}
	return entry
}
