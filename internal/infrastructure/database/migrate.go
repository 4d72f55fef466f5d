package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rustamrustamv/UEMS/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Payment{},
		&model.PaymentHistory{},
		&model.IdempotencyRecord{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes and constraints GORM doesn't handle
// automatically
func createCustomIndexes(db *gorm.DB) error {
	// Amount positivity is enforced at the storage layer as well
	if err := db.Exec(`ALTER TABLE payments DROP CONSTRAINT IF EXISTS check_amount_positive`).Error; err != nil {
		return err
	}
	if err := db.Exec(`ALTER TABLE payments ADD CONSTRAINT check_amount_positive CHECK (amount > 0)`).Error; err != nil {
		return err
	}

	// Open payments are the hot set for reconciliation lookups
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_open ON payments (updated_at) WHERE status IN ('pending', 'processing')`).Error; err != nil {
		return err
	}

	// Ledger reads are always per payment in append order
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payment_history_payment_ts ON payment_history (payment_id, timestamp)`).Error; err != nil {
		return err
	}

	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	return nil
}
