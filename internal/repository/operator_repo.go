package repository

import (
	"context"

	"payhub/internal/model"

	"gorm.io/gorm"
)

type OperatorRepository interface {
	Create(ctx context.Context, o *model.Operator) error
	FindByEmail(ctx context.Context, email string) (*model.Operator, error)
	FindByID(ctx context.Context, id int64) (*model.Operator, error)
	List(ctx context.Context) ([]model.Operator, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type operatorRepo struct{ db *gorm.DB }

func NewOperatorRepository(db *gorm.DB) OperatorRepository { return &operatorRepo{db: db} }

func (r *operatorRepo) Create(ctx context.Context, o *model.Operator) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *operatorRepo) FindByEmail(ctx context.Context, email string) (*model.Operator, error) {
	var o model.Operator
	// case-insensitive email match
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND active = ?", email, true).
		First(&o).Error
	return &o, err
}

func (r *operatorRepo) FindByID(ctx context.Context, id int64) (*model.Operator, error) {
	var o model.Operator
	err := r.db.WithContext(ctx).First(&o, id).Error
	return &o, err
}

func (r *operatorRepo) List(ctx context.Context) ([]model.Operator, error) {
	var ops []model.Operator
	err := r.db.WithContext(ctx).Order("id ASC").Find(&ops).Error
	return ops, err
}

func (r *operatorRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.db.WithContext(ctx).Model(&model.Operator{}).Where("id = ?", id).Update("active", active).Error
}
