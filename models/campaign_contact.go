package models

import "time"

// CampaignContactStatus enumerates dispatch queue states
type CampaignContactStatus string

const (
	CampaignContactStatusPending CampaignContactStatus = "pending"
	CampaignContactStatusSent    CampaignContactStatus = "sent"
	CampaignContactStatusFailed  CampaignContactStatus = "failed"
	CampaignContactStatusDone    CampaignContactStatus = "done"
)

// Failure reasons recorded in LastError
const (
	ReasonInvalidPhone   = "Invalid phone"
	ReasonOptedOut       = "Opted out"
	ReasonNoPhone        = "No phone"
	ReasonInvalidWebhook = "Invalid webhook"
)

// CampaignContact is one queue row per (campaign, contact). Rows are never deleted.
type CampaignContact struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	OwnerID     uint                  `gorm:"not null;index:idx_campaign_contacts_owner_id" json:"owner_id"`
	CampaignID  uint                  `gorm:"not null;uniqueIndex:uk_campaign_contacts_campaign_contact,priority:1;index:idx_campaign_contacts_campaign_status,priority:1" json:"campaign_id"`
	ContactID   uint                  `gorm:"not null;uniqueIndex:uk_campaign_contacts_campaign_contact,priority:2" json:"contact_id"`
	Status      CampaignContactStatus `gorm:"size:16;not null;default:'pending';index:idx_campaign_contacts_campaign_status,priority:2" json:"status"`
	Attempts    int                   `gorm:"not null;default:0" json:"attempts"`
	LastError   *string               `gorm:"type:text" json:"last_error,omitempty"`
	SentAt      *time.Time            `json:"sent_at,omitempty"`
	ProcessedAt *time.Time            `json:"processed_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`

	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
}

func (CampaignContact) TableName() string { return "campaign_contacts" }

// CampaignContactFilter provides filter fields for repository queries
type CampaignContactFilter struct {
	ID          *uint
	CampaignID  *uint
	CampaignIDs []uint
	ContactIDs  []uint
	OwnerID     *uint
	Status      *CampaignContactStatus
}
