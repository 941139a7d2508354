package repository

import (
	"context"

	"payhub/internal/model"

	"gorm.io/gorm"
)

// FranchiseFacts is one row of the classifier attribution join: the type of the
// franchise owning the transaction's object and the franchise participant
// currently assigned to that object, if any.
type FranchiseFacts struct {
	FranchiseType string
	ParticipantID *int64
}

// AttributionRepository answers the object → franchise questions.
type AttributionRepository interface {
	FindObject(ctx context.Context, objectID int64) (*model.EstimateObject, error)
	// FranchiseByObject returns gorm.ErrRecordNotFound when the object has no mapping row.
	FranchiseByObject(ctx context.Context, objectID int64) (*int64, error)
	ObjectByCertificate(ctx context.Context, code string) (int64, error)
	FindFranchise(ctx context.Context, franchiseID int64) (*model.Franchise, error)
	ClientByObject(ctx context.Context, objectID int64) (*model.Client, error)
	// ClassifierFacts returns every matching row; callers decide what a count other than one means.
	ClassifierFacts(ctx context.Context, tx *gorm.DB, transactionID string) ([]FranchiseFacts, error)
}

type attributionRepo struct{ db *gorm.DB }

func NewAttributionRepository(db *gorm.DB) AttributionRepository {
	return &attributionRepo{db: db}
}

func (r *attributionRepo) FindObject(ctx context.Context, objectID int64) (*model.EstimateObject, error) {
	var o model.EstimateObject
	err := r.db.WithContext(ctx).Where("object_id = ?", objectID).First(&o).Error
	return &o, err
}

func (r *attributionRepo) FranchiseByObject(ctx context.Context, objectID int64) (*int64, error) {
	var m model.ObjectFranchise
	if err := r.db.WithContext(ctx).Where("object_id = ?", objectID).First(&m).Error; err != nil {
		return nil, err
	}
	return m.FranchiseID, nil
}

func (r *attributionRepo) ObjectByCertificate(ctx context.Context, code string) (int64, error) {
	var row struct{ ObjectID int64 }
	res := r.db.WithContext(ctx).
		Table("certificates c").
		Select("ob.object_id AS object_id").
		Joins("JOIN object_budgets ob ON ob.budget_id = c.budget_id").
		Where("c.certificate_code = ?", code).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return row.ObjectID, nil
}

func (r *attributionRepo) FindFranchise(ctx context.Context, franchiseID int64) (*model.Franchise, error) {
	var f model.Franchise
	err := r.db.WithContext(ctx).Where("franchise_id = ?", franchiseID).First(&f).Error
	return &f, err
}

func (r *attributionRepo) ClientByObject(ctx context.Context, objectID int64) (*model.Client, error) {
	var c model.Client
	err := r.db.WithContext(ctx).
		Joins("JOIN object_clients oc ON oc.client_id = clients.client_id").
		Where("oc.object_id = ?", objectID).
		First(&c).Error
	return &c, err
}

func (r *attributionRepo) ClassifierFacts(ctx context.Context, tx *gorm.DB, transactionID string) ([]FranchiseFacts, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var rows []FranchiseFacts
	err := db.WithContext(ctx).
		Table("transactions t").
		Select("f.franchise_type AS franchise_type, p.user_id AS participant_id").
		Joins("JOIN object_franchises ofr ON ofr.object_id = t.object_id").
		Joins("JOIN franchises f ON f.franchise_id = ofr.franchise_id").
		Joins("LEFT JOIN object_participants p ON p.object_id = t.object_id AND p.department_id = ? AND p.date_end = ?",
			model.FranchiseDepartmentID, model.OpenEnd).
		Where("t.transaction_id = ?", transactionID).
		Scan(&rows).Error
	return rows, err
}
