package models

import "time"

// DispatchEventType names an audited queue transition
type DispatchEventType string

const (
	DispatchEventSelected DispatchEventType = "selected"
	DispatchEventInvalid  DispatchEventType = "invalid"
	DispatchEventSent     DispatchEventType = "sent"
	DispatchEventDone     DispatchEventType = "done"
	DispatchEventFailed   DispatchEventType = "failed"
)

// DispatchEvent is append-only. Rows are inserted, never updated.
type DispatchEvent struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	OwnerID           uint              `gorm:"not null;index:idx_dispatch_events_owner_id" json:"owner_id"`
	SessionID         *uint             `gorm:"index:idx_dispatch_events_session_id" json:"session_id,omitempty"`
	CampaignID        uint              `gorm:"not null;index:idx_dispatch_events_campaign_id" json:"campaign_id"`
	ContactID         uint              `gorm:"not null" json:"contact_id"`
	CampaignContactID uint              `gorm:"not null" json:"campaign_contact_id"`
	Type              DispatchEventType `gorm:"size:16;not null" json:"type"`
	Detail            *string           `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (DispatchEvent) TableName() string { return "dispatch_events" }

// DispatchEventFilter provides filter fields for repository queries
type DispatchEventFilter struct {
	OwnerID    *uint
	SessionID  *uint
	CampaignID *uint
	Type       *DispatchEventType
}
