package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// SchedulingQueueRepositoryImpl implements SchedulingQueueRepository
type SchedulingQueueRepositoryImpl struct {
	*BaseRepository[models.SchedulingQueueRow, models.SchedulingQueueFilter]
}

func NewSchedulingQueueRepository(db *gorm.DB) SchedulingQueueRepository {
	return &SchedulingQueueRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SchedulingQueueRow, models.SchedulingQueueFilter](db, applySchedulingQueueFilter),
	}
}

func applySchedulingQueueFilter(db *gorm.DB, f models.SchedulingQueueFilter) *gorm.DB {
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.BatchID != nil {
		db = db.Where("batch_id = ?", *f.BatchID)
	}
	return db
}

func (r *SchedulingQueueRepositoryImpl) Oldest(ctx context.Context, ownerID, batchID uint, limit int) ([]*models.SchedulingQueueRow, error) {
	filter := models.SchedulingQueueFilter{OwnerID: &ownerID, BatchID: &batchID}
	return r.ByFilter(ctx, filter, "created_at ASC, id ASC", limit, 0)
}

// DeleteByIDs removes exactly the given rows of an owner
func (r *SchedulingQueueRepositoryImpl) DeleteByIDs(ctx context.Context, ownerID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Where("owner_id = ? AND id IN ?", ownerID, ids).Delete(&models.SchedulingQueueRow{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete scheduling queue rows: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
