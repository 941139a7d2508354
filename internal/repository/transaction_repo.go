package repository

import (
	"context"
	"time"

	"payhub/internal/dto"
	"payhub/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	FindByID(ctx context.Context, id string) (*model.Transaction, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error)
	// FindForUpdate loads the row under a row lock; tx must be a transaction.
	FindForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Transaction, error)
	// ListByCertificate returns the active rows whose entity_code is the certificate.
	ListByCertificate(ctx context.Context, tx *gorm.DB, code string) ([]model.Transaction, error)
	LatestClosedForCertificate(ctx context.Context, tx *gorm.DB, code string) (*model.Transaction, error)
	MarkClosed(ctx context.Context, tx *gorm.DB, id string, fee decimal.Decimal, at time.Time) error
	SetOrder(ctx context.Context, id, orderID, orderURL string) error
	Cancel(ctx context.Context, id string, at time.Time) error
	SetReceiptID(ctx context.Context, id, receiptID string) error
	// SetReceiptURL reports false when no transaction has the id.
	SetReceiptURL(ctx context.Context, id, url string) (bool, error)
	HasCashActPayments(ctx context.Context, objectID int64, code string) (bool, error)
	List(ctx context.Context, filter dto.TransactionFilter) ([]model.Transaction, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type transactionRepo struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) DB() *gorm.DB { return r.db }

// conn returns tx when the caller runs inside a transaction, the pool otherwise.
func (r *transactionRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *transactionRepo) Create(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	return r.conn(ctx, tx).Create(t).Error
}

func (r *transactionRepo) FindByID(ctx context.Context, id string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", id).First(&t).Error
	return &t, err
}

func (r *transactionRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).Where("acquiring_order_id = ?", orderID).First(&t).Error
	return &t, err
}

func (r *transactionRepo) FindForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.conn(ctx, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", id).
		First(&t).Error
	return &t, err
}

func (r *transactionRepo) ListByCertificate(ctx context.Context, tx *gorm.DB, code string) ([]model.Transaction, error) {
	var rows []model.Transaction
	err := r.conn(ctx, tx).
		Where("entity_code = ? AND is_active = ?", code, true).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *transactionRepo) LatestClosedForCertificate(ctx context.Context, tx *gorm.DB, code string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.conn(ctx, tx).
		Where("entity_code = ? AND is_active = ? AND is_closed = ? AND transaction_type_code = ?",
			code, true, true, model.TypeCertificatePayment).
		Where("payment_type NOT IN ?", []string{model.PaymentTypeBilling, model.PaymentTypeDebt}).
		Order("closed_at DESC").
		First(&t).Error
	return &t, err
}

// MarkClosed closes an acquiring payment. The provider names the payer, so the
// row is always identified.
func (r *transactionRepo) MarkClosed(ctx context.Context, tx *gorm.DB, id string, fee decimal.Decimal, at time.Time) error {
	res := r.conn(ctx, tx).Model(&model.Transaction{}).
		Where("transaction_id = ? AND is_closed = ?", id, false).
		Updates(map[string]any{
			"is_closed":   true,
			"is_identify": true,
			"fee":         fee,
			"closed_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *transactionRepo) SetOrder(ctx context.Context, id, orderID, orderURL string) error {
	return r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_id = ?", id).
		Updates(map[string]any{
			"acquiring_order_id": orderID,
			"order_url":          orderURL,
			"is_active":          true,
		}).Error
}

func (r *transactionRepo) Cancel(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_id = ? AND is_closed = ?", id, false).
		Updates(map[string]any{"is_active": false, "cancelled_at": at}).Error
}

func (r *transactionRepo) SetReceiptID(ctx context.Context, id, receiptID string) error {
	return r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_id = ?", id).
		Update("receipt_id", receiptID).Error
}

func (r *transactionRepo) SetReceiptURL(ctx context.Context, id, url string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_id = ?", id).
		Update("receipt", url)
	return res.RowsAffected > 0, res.Error
}

func (r *transactionRepo) HasCashActPayments(ctx context.Context, objectID int64, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("object_id = ? AND entity_code = ? AND entity_type = ?", objectID, code, model.EntityAct).
		Where("payment_type = ? AND transaction_type_code = ? AND is_active = ?",
			model.PaymentTypeCash, model.TypeCertificatePayment, true).
		Count(&n).Error
	return n > 0, err
}

func (r *transactionRepo) List(ctx context.Context, filter dto.TransactionFilter) ([]model.Transaction, int64, error) {
	var rows []model.Transaction
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Transaction{})

	if filter.EntityCode != "" {
		q = q.Where("entity_code = ?", filter.EntityCode)
	}
	if filter.ObjectID != nil {
		q = q.Where("object_id = ?", *filter.ObjectID)
	}
	switch filter.Status {
	case "open":
		q = q.Where("is_closed = ? AND cancelled_at IS NULL", false)
	case "closed":
		q = q.Where("is_closed = ?", true)
	case "cancelled":
		q = q.Where("cancelled_at IS NOT NULL")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Offset(offset).Limit(filter.Limit)
	}
	err := q.Find(&rows).Error
	return rows, total, err
}
