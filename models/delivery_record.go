package models

import "time"

// DeliveryRecord is a provider-reported outcome for one campaign contact
type DeliveryRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index:idx_delivery_records_owner_id" json:"owner_id"`
	CampaignID  uint      `gorm:"not null;index:idx_delivery_records_campaign_contact,priority:1" json:"campaign_id"`
	ContactID   uint      `gorm:"not null;index:idx_delivery_records_campaign_contact,priority:2" json:"contact_id"`
	Channel     Channel   `gorm:"size:16;not null" json:"channel"`
	ProviderRef *string   `gorm:"size:128" json:"provider_ref,omitempty"`
	Status      string    `gorm:"size:64;not null" json:"status"`
	EndedReason *string   `gorm:"size:255" json:"ended_reason,omitempty"`
	Terminal    bool      `gorm:"not null;default:false" json:"terminal"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DeliveryRecord) TableName() string { return "delivery_records" }

// DeliveryRecordFilter provides filter fields for repository queries
type DeliveryRecordFilter struct {
	OwnerID    *uint
	CampaignID *uint
	ContactID  *uint
	Terminal   *bool
}
