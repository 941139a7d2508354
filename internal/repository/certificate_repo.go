package repository

import (
	"context"

	"payhub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Certificate, error)
	// LockByCode takes the row lock that serializes settlement of one certificate.
	LockByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Certificate, error)
	SetLastPaidCert(ctx context.Context, tx *gorm.DB, budgetID int64, num int) error
	FindBudget(ctx context.Context, budgetID int64) (*model.Budget, error)
}

type certificateRepo struct{ db *gorm.DB }

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepo{db: db}
}

func (r *certificateRepo) FindByCode(ctx context.Context, code string) (*model.Certificate, error) {
	var c model.Certificate
	err := r.db.WithContext(ctx).Where("certificate_code = ?", code).First(&c).Error
	return &c, err
}

func (r *certificateRepo) LockByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Certificate, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var c model.Certificate
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("certificate_code = ?", code).
		First(&c).Error
	return &c, err
}

// SetLastPaidCert overwrites the pointer; the latest writer wins.
func (r *certificateRepo) SetLastPaidCert(ctx context.Context, tx *gorm.DB, budgetID int64, num int) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Model(&model.Budget{}).
		Where("budget_id = ?", budgetID).
		Update("last_paid_cert", num).Error
}

func (r *certificateRepo) FindBudget(ctx context.Context, budgetID int64) (*model.Budget, error) {
	var b model.Budget
	err := r.db.WithContext(ctx).Where("budget_id = ?", budgetID).First(&b).Error
	return &b, err
}
