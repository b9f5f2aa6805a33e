package models

import "time"

// Batch is a reusable named set of contacts, independent of any campaign
type Batch struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OwnerID      uint      `gorm:"not null;index:idx_batches_owner_id" json:"owner_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	ContactCount int       `gorm:"not null;default:0" json:"contact_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Batch) TableName() string { return "batches" }

// BatchContact snapshots a contact's addressing fields at import time
type BatchContact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BatchID   uint      `gorm:"not null;uniqueIndex:uk_batch_contacts_batch_contact,priority:1" json:"batch_id"`
	ContactID uint      `gorm:"not null;uniqueIndex:uk_batch_contacts_batch_contact,priority:2;index:idx_batch_contacts_contact_id" json:"contact_id"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (BatchContact) TableName() string { return "batch_contacts" }

// BatchMember is a batch contact joined with the live opt-out flag of its contact
type BatchMember struct {
	BatchContactID uint   `json:"batch_contact_id"`
	BatchID        uint   `json:"batch_id"`
	ContactID      uint   `json:"contact_id"`
	Phone          string `json:"phone"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	OptedOut       bool   `json:"opted_out"`
}

// BatchFilter provides filter fields for repository queries
type BatchFilter struct {
	ID      *uint
	IDs     []uint
	OwnerID *uint
}
