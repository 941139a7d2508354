package repository

import (
	"context"
	"errors"
	"time"

	"payhub/internal/apierror"
	"payhub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusRepository owns the time-ranged status track of certificates. Rows are
// never deleted: a transition closes the open row and appends a new one.
type StatusRepository interface {
	// Transition moves the certificate to status. It is a no-op returning false
	// when the open row already has that status. With a nil tx it runs in its
	// own database transaction.
	Transition(ctx context.Context, tx *gorm.DB, code string, status model.CertificateStatusID, actorID int64, now time.Time) (bool, error)
	// Current returns the open row, or nil when the certificate has none.
	Current(ctx context.Context, tx *gorm.DB, code string) (*model.CertificateStatus, error)
	History(ctx context.Context, code string) ([]model.CertificateStatus, error)
}

type statusRepo struct{ db *gorm.DB }

func NewStatusRepository(db *gorm.DB) StatusRepository { return &statusRepo{db: db} }

func (r *statusRepo) Transition(ctx context.Context, tx *gorm.DB, code string, status model.CertificateStatusID, actorID int64, now time.Time) (bool, error) {
	if tx != nil {
		return r.transition(tx.WithContext(ctx), code, status, actorID, now)
	}
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = r.transition(tx, code, status, actorID, now)
		return err
	})
	return changed, err
}

func (r *statusRepo) transition(tx *gorm.DB, code string, status model.CertificateStatusID, actorID int64, now time.Time) (bool, error) {
	if status == model.StatusNone {
		return false, errors.New("status: cannot transition to none")
	}

	var open []model.CertificateStatus
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("certificate_code = ? AND date_end = ?", code, model.OpenEnd).
		Find(&open).Error
	if err != nil {
		return false, err
	}
	if len(open) > 1 {
		return false, apierror.Consistency("certificate %s has %d open status rows", code, len(open))
	}

	if len(open) == 1 {
		if open[0].StatusID == status {
			return false, nil
		}
		err := tx.Model(&model.CertificateStatus{}).
			Where("id = ?", open[0].ID).
			Update("date_end", now).Error
		if err != nil {
			return false, err
		}
	}

	row := &model.CertificateStatus{
		CertificateCode: code,
		StatusID:        status,
		DateStart:       now,
		DateEnd:         model.OpenEnd,
		UserID:          actorID,
	}
	if err := tx.Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *statusRepo) Current(ctx context.Context, tx *gorm.DB, code string) (*model.CertificateStatus, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var s model.CertificateStatus
	err := db.WithContext(ctx).
		Where("certificate_code = ? AND date_end = ?", code, model.OpenEnd).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepo) History(ctx context.Context, code string) ([]model.CertificateStatus, error) {
	var rows []model.CertificateStatus
	err := r.db.WithContext(ctx).
		Where("certificate_code = ?", code).
		Order("date_start ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
