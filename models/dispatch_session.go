package models

import (
	"time"

	"github.com/google/uuid"
)

// DispatchSession records one bounded coordinator invocation. EndedAt stays nil when the
// process dies mid-session.
type DispatchSession struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UUID               uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_dispatch_sessions_uuid" json:"uuid"`
	OwnerID            uint       `gorm:"not null;index:idx_dispatch_sessions_owner_channel,priority:1" json:"owner_id"`
	Channel            Channel    `gorm:"size:16;not null;index:idx_dispatch_sessions_owner_channel,priority:2" json:"channel"`
	SessionMS          int64      `gorm:"not null" json:"session_ms"`
	ContactsPerSession int        `gorm:"not null" json:"contacts_per_session"`
	GapMS              int64      `gorm:"not null" json:"gap_ms"`
	StartedAt          time.Time  `gorm:"not null" json:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	Dispatched         int        `gorm:"not null;default:0" json:"dispatched"`
	Sent               int        `gorm:"not null;default:0" json:"sent"`
	Failed             int        `gorm:"not null;default:0" json:"failed"`
	Invalid            int        `gorm:"not null;default:0" json:"invalid"`
	DurationMS         int64      `gorm:"not null;default:0" json:"duration_ms"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (DispatchSession) TableName() string { return "dispatch_sessions" }

// DispatchSessionFilter provides filter fields for repository queries
type DispatchSessionFilter struct {
	ID      *uint
	UUID    *uuid.UUID
	OwnerID *uint
	Channel *Channel
}
