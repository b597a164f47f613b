// internal/models/webhook_event.go
package models

import "time"

// WebhookEvent records every authenticated payment-provider delivery. The
// unique provider event id gives a second dedup layer on top of the
// conditional status transition, and keeps an audit trail of redeliveries.
type WebhookEvent struct {
	BaseModel
	ProviderEventID string     `json:"provider_event_id" gorm:"size:255;uniqueIndex;not null"`
	EventType       string     `json:"event_type" gorm:"size:100;not null;index"`
	SessionID       string     `json:"session_id" gorm:"size:255;index"`
	ProcessedAt     *time.Time `json:"processed_at"`
}
