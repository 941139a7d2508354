package infra

import (
	"fmt"

	"payhub/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the schema
// up to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every persistent type, in dependency order.
func Models() []any {
	return []any{
		&model.Franchise{},
		&model.EstimateObject{},
		&model.ObjectFranchise{},
		&model.ObjectParticipant{},
		&model.ObjectBudget{},
		&model.Client{},
		&model.ObjectClient{},
		&model.Budget{},
		&model.Certificate{},
		&model.CertificateStatus{},
		&model.Transaction{},
		&model.WebhookEvent{},
		&model.Operator{},
	}
}

// RunMigrations runs AutoMigrate for all models, then the idempotent SQL patches.
// Used by the server at startup, by `payctl migrate` and by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express (partial indexes, check constraints). Each statement is guarded so
// re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// settlement sums scan the active rows of one certificate
		`CREATE INDEX IF NOT EXISTS idx_transactions_settlement
		    ON transactions (entity_code)
		    WHERE is_active AND transaction_type_code = 'CERTIFICATE_PAYMENT'`,
		// billing rows: at most one active per certificate
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_active_billing
		    ON transactions (entity_code)
		    WHERE is_active AND payment_type = 'billing'`,
		// only the open row is unique; closed rows may share an end timestamp
		`DROP INDEX IF EXISTS ux_certificate_status_open`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_certificate_statuses_open
		    ON certificate_statuses (certificate_code)
		    WHERE date_end = '9999-12-31 23:59:59'`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_certificate_statuses_range') THEN
		    ALTER TABLE certificate_statuses
		      ADD CONSTRAINT chk_certificate_statuses_range CHECK (date_start <= date_end);
		  END IF;
		END $$`,
		// webhook events that failed and wait for redelivery
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed
		    ON webhook_events (created_at)
		    WHERE processed_at IS NULL`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
