package model

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent stores provider notifications with deduplication metadata.
// ProcessedAt stays nil until the event was applied without error, so a
// redelivery of a failed event is processed again.
type WebhookEvent struct {
	ID              uint64         `gorm:"primaryKey"`
	Provider        string         `gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string         `gorm:"type:varchar(64);not null;index"`
	TransactionID   string         `gorm:"type:varchar(64);index"`
	Payload         datatypes.JSON `gorm:"not null"`
	ProcessedAt     *time.Time
	ProcessingError string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (WebhookEvent) TableName() string { return "webhook_events" }
