package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rustamrustamv/UEMS/internal/domain/model"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
)

type historyRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new ledger repository
func NewHistoryRepository(db *gorm.DB, logger *zap.Logger) domainRepo.HistoryRepository {
	return &historyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *historyRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*model.PaymentHistory, error) {
	var entries []*model.PaymentHistory
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("timestamp ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment history: %w", err)
	}
	return entries, nil
}
