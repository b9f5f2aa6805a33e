package models

import "time"

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused, CampaignStatusCompleted:
		return true
	}
	return false
}

// Channel identifies how a campaign reaches its contacts
type Channel string

const (
	ChannelCall     Channel = "call"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) Valid() bool {
	return c == ChannelCall || c == ChannelWhatsApp
}

// Campaign is a named unit of outbound work. Description carries free-text dispatch parameters.
type Campaign struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     uint           `gorm:"not null;index:idx_campaigns_owner_status,priority:1" json:"owner_id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Channel     Channel        `gorm:"size:16;not null;default:'call'" json:"channel"`
	Status      CampaignStatus `gorm:"size:16;not null;default:'draft';index:idx_campaigns_owner_status,priority:2" json:"status"`
	Description string         `gorm:"type:text" json:"description"`
	WebhookURL  *string        `gorm:"size:1024" json:"webhook_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Campaign) TableName() string { return "campaigns" }

// CampaignBatch links a campaign to a batch it draws contacts from
type CampaignBatch struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"not null;uniqueIndex:uk_campaign_batches_pair,priority:1" json:"campaign_id"`
	BatchID    uint      `gorm:"not null;uniqueIndex:uk_campaign_batches_pair,priority:2" json:"batch_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (CampaignBatch) TableName() string { return "campaign_batches" }

// CampaignFilter provides filter fields for repository queries
type CampaignFilter struct {
	ID      *uint
	IDs     []uint
	OwnerID *uint
	Channel *Channel
	Status  *CampaignStatus
}
