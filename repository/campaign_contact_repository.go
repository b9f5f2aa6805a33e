package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"gorm.io/gorm"
)

// CampaignContactRepositoryImpl implements CampaignContactRepository
type CampaignContactRepositoryImpl struct {
	*BaseRepository[models.CampaignContact, models.CampaignContactFilter]
}

func NewCampaignContactRepository(db *gorm.DB) CampaignContactRepository {
	return &CampaignContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignContact, models.CampaignContactFilter](db, applyCampaignContactFilter),
	}
}

func applyCampaignContactFilter(db *gorm.DB, f models.CampaignContactFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if len(f.CampaignIDs) > 0 {
		db = db.Where("campaign_id IN ?", f.CampaignIDs)
	}
	if len(f.ContactIDs) > 0 {
		db = db.Where("contact_id IN ?", f.ContactIDs)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

func (r *CampaignContactRepositoryImpl) ExistingContactIDs(ctx context.Context, campaignID uint, contactIDs []uint) (map[uint]struct{}, error) {
	existing := make(map[uint]struct{}, len(contactIDs))
	if len(contactIDs) == 0 {
		return existing, nil
	}

	var ids []uint
	err := r.getDB(ctx).Model(&models.CampaignContact{}).
		Where("campaign_id = ? AND contact_id IN ?", campaignID, contactIDs).
		Pluck("contact_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up queued contacts of campaign %d: %w", campaignID, err)
	}
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// InsertIgnoreDuplicates relies on the (campaign_id, contact_id) unique key
func (r *CampaignContactRepositoryImpl) InsertIgnoreDuplicates(ctx context.Context, rows []*models.CampaignContact) (int64, error) {
	return r.SaveBatchIgnoreConflicts(ctx, rows)
}

func (r *CampaignContactRepositoryImpl) OldestPending(ctx context.Context, campaignID uint, limit int) ([]*models.CampaignContact, error) {
	query := r.getDB(ctx).
		Preload("Contact").
		Where("campaign_id = ? AND status = ?", campaignID, models.CampaignContactStatusPending).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []*models.CampaignContact
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to pull pending contacts of campaign %d: %w", campaignID, err)
	}
	return rows, nil
}

// transition applies updates to a row only while it is still in the from state
func (r *CampaignContactRepositoryImpl) transition(ctx context.Context, id uint, from models.CampaignContactStatus, updates map[string]any) (bool, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		query := db.Model(&models.CampaignContact{}).Where("id = ?", id)
		if from != "" {
			query = query.Where("status = ?", from)
		}
		res := query.Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update campaign contact %d: %w", id, res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected > 0, err
}

func (r *CampaignContactRepositoryImpl) MarkSent(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.transition(ctx, id, models.CampaignContactStatusPending, map[string]any{
		"status":     models.CampaignContactStatusSent,
		"attempts":   gorm.Expr("attempts + 1"),
		"sent_at":    at,
		"last_error": nil,
		"updated_at": at,
	})
}

func (r *CampaignContactRepositoryImpl) MarkInvalid(ctx context.Context, id uint, reason string) (bool, error) {
	return r.transition(ctx, id, models.CampaignContactStatusPending, map[string]any{
		"status":     models.CampaignContactStatusFailed,
		"last_error": reason,
		"updated_at": utils.UTCNow(),
	})
}

func (r *CampaignContactRepositoryImpl) MarkFailed(ctx context.Context, id uint, reason string) (bool, error) {
	return r.transition(ctx, id, models.CampaignContactStatusPending, map[string]any{
		"status":     models.CampaignContactStatusFailed,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": reason,
		"updated_at": utils.UTCNow(),
	})
}

func (r *CampaignContactRepositoryImpl) MarkSendFailed(ctx context.Context, id uint, reason string) (bool, error) {
	return r.transition(ctx, id, models.CampaignContactStatusSent, map[string]any{
		"status":     models.CampaignContactStatusFailed,
		"last_error": reason,
		"sent_at":    nil,
		"updated_at": utils.UTCNow(),
	})
}

func (r *CampaignContactRepositoryImpl) MarkDone(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.transition(ctx, id, models.CampaignContactStatusSent, map[string]any{
		"status":       models.CampaignContactStatusDone,
		"processed_at": at,
		"updated_at":   at,
	})
}

type campaignCount struct {
	CampaignID uint
	Total      int64
}

// CountPendingByCampaign reports zero for campaigns without pending rows
func (r *CampaignContactRepositoryImpl) CountPendingByCampaign(ctx context.Context, campaignIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(campaignIDs))
	if len(campaignIDs) == 0 {
		return counts, nil
	}
	for _, id := range campaignIDs {
		counts[id] = 0
	}

	var rows []campaignCount
	err := r.getDB(ctx).Model(&models.CampaignContact{}).
		Select("campaign_id, COUNT(*) AS total").
		Where("campaign_id IN ? AND status = ?", campaignIDs, models.CampaignContactStatusPending).
		Group("campaign_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending contacts: %w", err)
	}
	for _, row := range rows {
		counts[row.CampaignID] = row.Total
	}
	return counts, nil
}

func (r *CampaignContactRepositoryImpl) ListSentWithTerminalDelivery(ctx context.Context, campaignIDs []uint, afterID uint, limit int) ([]*models.CampaignContact, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}

	query := r.getDB(ctx).
		Where("campaign_contacts.campaign_id IN ? AND campaign_contacts.status = ? AND campaign_contacts.id > ?",
			campaignIDs, models.CampaignContactStatusSent, afterID).
		Where("EXISTS (SELECT 1 FROM delivery_records dr WHERE dr.campaign_id = campaign_contacts.campaign_id AND dr.contact_id = campaign_contacts.contact_id AND dr.terminal = ?)", true).
		Order("campaign_contacts.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []*models.CampaignContact
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list reconcilable contacts: %w", err)
	}
	return rows, nil
}
