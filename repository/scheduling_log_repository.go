package repository

import (
	"github.com/amirphl/Susanoo/models"
	"gorm.io/gorm"
)

// SchedulingLogRepositoryImpl implements SchedulingLogRepository
type SchedulingLogRepositoryImpl struct {
	*BaseRepository[models.SchedulingLog, models.SchedulingLogFilter]
}

func NewSchedulingLogRepository(db *gorm.DB) SchedulingLogRepository {
	return &SchedulingLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SchedulingLog, models.SchedulingLogFilter](db, func(db *gorm.DB, f models.SchedulingLogFilter) *gorm.DB {
			if f.OwnerID != nil {
				db = db.Where("owner_id = ?", *f.OwnerID)
			}
			if f.BatchID != nil {
				db = db.Where("batch_id = ?", *f.BatchID)
			}
			if f.Status != nil {
				db = db.Where("status = ?", *f.Status)
			}
			return db
		}),
	}
}
