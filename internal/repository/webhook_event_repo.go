package repository

import (
	"context"
	"time"

	"payhub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository deduplicates provider notifications on (provider, provider_event_id).
type WebhookEventRepository interface {
	// Record inserts e unless the event is already stored. When it is, e is
	// overwritten with the stored row and created is false.
	Record(ctx context.Context, e *model.WebhookEvent) (created bool, err error)
	MarkProcessed(ctx context.Context, id uint64, at time.Time) error
	MarkFailed(ctx context.Context, id uint64, reason string) error
	ListUnprocessed(ctx context.Context, limit int) ([]model.WebhookEvent, error)
}

type webhookEventRepo struct{ db *gorm.DB }

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepo{db: db}
}

func (r *webhookEventRepo) Record(ctx context.Context, e *model.WebhookEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", e.Provider, e.ProviderEventID).
		First(e).Error
	return false, err
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed_at": at, "processing_error": ""}).Error
}

func (r *webhookEventRepo) MarkFailed(ctx context.Context, id uint64, reason string) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Update("processing_error", reason).Error
}

func (r *webhookEventRepo) ListUnprocessed(ctx context.Context, limit int) ([]model.WebhookEvent, error) {
	var rows []model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
