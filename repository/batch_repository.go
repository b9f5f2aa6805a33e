package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// BatchRepositoryImpl implements BatchRepository
type BatchRepositoryImpl struct {
	*BaseRepository[models.Batch, models.BatchFilter]
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &BatchRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Batch, models.BatchFilter](db, applyBatchFilter),
	}
}

func applyBatchFilter(db *gorm.DB, f models.BatchFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if len(f.IDs) > 0 {
		db = db.Where("id IN ?", f.IDs)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	return db
}

func (r *BatchRepositoryImpl) ByOwnerAndID(ctx context.Context, ownerID, batchID uint) (*models.Batch, error) {
	var batch models.Batch
	err := r.getDB(ctx).Where("id = ? AND owner_id = ?", batchID, ownerID).First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find batch %d: %w", batchID, err)
	}
	return &batch, nil
}

// AddMembers stores member snapshots and refreshes the cached member count
func (r *BatchRepositoryImpl) AddMembers(ctx context.Context, batchID uint, members []*models.BatchContact) error {
	if len(members) == 0 {
		return nil
	}
	for _, m := range members {
		m.BatchID = batchID
	}

	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.CreateInBatches(members, 100).Error; err != nil {
			return fmt.Errorf("failed to add batch members: %w", err)
		}

		var count int64
		if err := db.Model(&models.BatchContact{}).Where("batch_id = ?", batchID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count batch members: %w", err)
		}
		if err := db.Model(&models.Batch{}).Where("id = ?", batchID).Update("contact_count", count).Error; err != nil {
			return fmt.Errorf("failed to update batch contact count: %w", err)
		}
		return nil
	})
}

func (r *BatchRepositoryImpl) Members(ctx context.Context, batchID, afterID uint, limit int) ([]models.BatchMember, error) {
	query := r.getDB(ctx).
		Table("batch_contacts AS bc").
		Select("bc.id AS batch_contact_id, bc.batch_id, bc.contact_id, bc.phone, bc.name, bc.email, COALESCE(c.opted_out, false) AS opted_out").
		Joins("LEFT JOIN contacts c ON c.id = bc.contact_id").
		Where("bc.batch_id = ? AND bc.id > ?", batchID, afterID).
		Order("bc.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var members []models.BatchMember
	if err := query.Scan(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list members of batch %d: %w", batchID, err)
	}
	return members, nil
}
