package models

import (
	"encoding/json"
	"time"
)

// SchedulingQueueRow waits for chunked provider submission. Payload is a snapshot of the
// customer record taken at enqueue time.
type SchedulingQueueRow struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OwnerID   uint            `gorm:"not null;uniqueIndex:uk_scheduling_queue_owner_batch_contact,priority:1;index:idx_scheduling_queue_owner_batch,priority:1" json:"owner_id"`
	BatchID   uint            `gorm:"not null;uniqueIndex:uk_scheduling_queue_owner_batch_contact,priority:2;index:idx_scheduling_queue_owner_batch,priority:2" json:"batch_id"`
	ContactID uint            `gorm:"not null;uniqueIndex:uk_scheduling_queue_owner_batch_contact,priority:3" json:"contact_id"`
	Payload   json.RawMessage `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (SchedulingQueueRow) TableName() string { return "scheduling_queue" }

// SchedulingQueueFilter provides filter fields for repository queries
type SchedulingQueueFilter struct {
	OwnerID *uint
	BatchID *uint
}

// QueuePayload is the customer snapshot stored in SchedulingQueueRow.Payload
type QueuePayload struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// SchedulingLogStatus is the outcome of one drain submission
type SchedulingLogStatus string

const (
	SchedulingLogStatusSubmitted SchedulingLogStatus = "submitted"
	SchedulingLogStatusFailed    SchedulingLogStatus = "failed"
	SchedulingLogStatusSkipped   SchedulingLogStatus = "skipped"
)

// SchedulingLog is appended once per drain submission attempt
type SchedulingLog struct {
	ID                   uint                `gorm:"primaryKey" json:"id"`
	OwnerID              uint                `gorm:"not null;index:idx_scheduling_logs_owner_batch,priority:1" json:"owner_id"`
	BatchID              uint                `gorm:"not null;index:idx_scheduling_logs_owner_batch,priority:2" json:"batch_id"`
	ProviderCampaignID   *string             `gorm:"size:128" json:"provider_campaign_id,omitempty"`
	ProviderCampaignName *string             `gorm:"size:255" json:"provider_campaign_name,omitempty"`
	Count                int                 `gorm:"not null;default:0" json:"count"`
	Status               SchedulingLogStatus `gorm:"size:16;not null" json:"status"`
	Error                *string             `gorm:"type:text" json:"error,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

func (SchedulingLog) TableName() string { return "scheduling_logs" }

// SchedulingLogFilter provides filter fields for repository queries
type SchedulingLogFilter struct {
	OwnerID *uint
	BatchID *uint
	Status  *SchedulingLogStatus
}
