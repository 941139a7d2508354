package service

import (
	"context"

	"payhub/internal/worker"

	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// Dispatcher enqueues post-commit work (satisfied by *worker.Dispatcher).
type Dispatcher interface {
	EnqueueReceipt(ctx context.Context, payload worker.ReceiptJobPayload) error
	EnqueueNotification(ctx context.Context, payload worker.NotifyJobPayload) error
}
