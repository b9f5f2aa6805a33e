package repository

import (
	"context"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// DispatchEventRepositoryImpl implements DispatchEventRepository. Events are insert-only.
type DispatchEventRepositoryImpl struct {
	*BaseRepository[models.DispatchEvent, models.DispatchEventFilter]
}

func NewDispatchEventRepository(db *gorm.DB) DispatchEventRepository {
	return &DispatchEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DispatchEvent, models.DispatchEventFilter](db, applyDispatchEventFilter),
	}
}

func applyDispatchEventFilter(db *gorm.DB, f models.DispatchEventFilter) *gorm.DB {
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.SessionID != nil {
		db = db.Where("session_id = ?", *f.SessionID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.Type != nil {
		db = db.Where("type = ?", *f.Type)
	}
	return db
}

func (r *DispatchEventRepositoryImpl) ListBySession(ctx context.Context, ownerID, sessionID uint) ([]*models.DispatchEvent, error) {
	filter := models.DispatchEventFilter{OwnerID: &ownerID, SessionID: &sessionID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}
