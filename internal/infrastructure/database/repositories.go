package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rustamrustamv/UEMS/internal/adapter/repository"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Payment        domainRepo.PaymentRepository
	History        domainRepo.HistoryRepository
	Reconciliation domainRepo.ReconciliationStore
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Payment:        repository.NewPaymentRepository(db, logger),
		History:        repository.NewHistoryRepository(db, logger),
		Reconciliation: repository.NewReconciliationStore(db, logger),
	}
}
