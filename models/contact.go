// Package models contains the gorm entities persisted by the dispatch service
package models

import "time"

// Contact is an owner's addressable person. Only OptedOut changes after import.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index:idx_contacts_owner_id" json:"owner_id"`
	Name      string    `gorm:"size:255" json:"name"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Email     string    `gorm:"size:255" json:"email"`
	OptedOut  bool      `gorm:"not null;default:false" json:"opted_out"`
	Notes     *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string { return "contacts" }
