package repository

import (
	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// DeliveryRecordRepositoryImpl implements DeliveryRecordRepository
type DeliveryRecordRepositoryImpl struct {
	*BaseRepository[models.DeliveryRecord, models.DeliveryRecordFilter]
}

func NewDeliveryRecordRepository(db *gorm.DB) DeliveryRecordRepository {
	return &DeliveryRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DeliveryRecord, models.DeliveryRecordFilter](db, applyDeliveryRecordFilter),
	}
}

func applyDeliveryRecordFilter(db *gorm.DB, f models.DeliveryRecordFilter) *gorm.DB {
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.ContactID != nil {
		db = db.Where("contact_id = ?", *f.ContactID)
	}
	if f.Terminal != nil {
		db = db.Where("terminal = ?", *f.Terminal)
	}
	return db
}
