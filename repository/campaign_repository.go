package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRepositoryImpl implements CampaignRepository
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db, applyCampaignFilter),
	}
}

func applyCampaignFilter(db *gorm.DB, f models.CampaignFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if len(f.IDs) > 0 {
		db = db.Where("id IN ?", f.IDs)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Channel != nil {
		db = db.Where("channel = ?", *f.Channel)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

func (r *CampaignRepositoryImpl) ByOwnerAndID(ctx context.Context, ownerID, campaignID uint) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.getDB(ctx).Where("id = ? AND owner_id = ?", campaignID, ownerID).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign %d: %w", campaignID, err)
	}
	return &campaign, nil
}

// ListActive returns the owner's active campaigns of a channel in stable id order
func (r *CampaignRepositoryImpl) ListActive(ctx context.Context, ownerID uint, channel models.Channel) ([]*models.Campaign, error) {
	status := models.CampaignStatusActive
	filter := models.CampaignFilter{OwnerID: &ownerID, Channel: &channel, Status: &status}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

func (r *CampaignRepositoryImpl) Activate(ctx context.Context, campaignID uint, webhookURL *string) error {
	updates := map[string]any{
		"status":     models.CampaignStatusActive,
		"updated_at": utils.UTCNow(),
	}
	if webhookURL != nil {
		updates["webhook_url"] = *webhookURL
	}

	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Model(&models.Campaign{}).Where("id = ?", campaignID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to activate campaign %d: %w", campaignID, err)
		}
		return nil
	})
}

func (r *CampaignRepositoryImpl) LinkBatch(ctx context.Context, campaignID, batchID uint) error {
	link := &models.CampaignBatch{CampaignID: campaignID, BatchID: batchID}
	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error; err != nil {
			return fmt.Errorf("failed to link batch %d to campaign %d: %w", batchID, campaignID, err)
		}
		return nil
	})
}

func (r *CampaignRepositoryImpl) LinkedBatchIDs(ctx context.Context, campaignID uint) ([]uint, error) {
	var ids []uint
	err := r.getDB(ctx).Model(&models.CampaignBatch{}).
		Where("campaign_id = ?", campaignID).
		Order("batch_id ASC").
		Pluck("batch_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list batches of campaign %d: %w", campaignID, err)
	}
	return ids, nil
}
