package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DispatchSessionRepositoryImpl implements DispatchSessionRepository
type DispatchSessionRepositoryImpl struct {
	*BaseRepository[models.DispatchSession, models.DispatchSessionFilter]
}

func NewDispatchSessionRepository(db *gorm.DB) DispatchSessionRepository {
	return &DispatchSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DispatchSession, models.DispatchSessionFilter](db, applyDispatchSessionFilter),
	}
}

func applyDispatchSessionFilter(db *gorm.DB, f models.DispatchSessionFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Channel != nil {
		db = db.Where("channel = ?", *f.Channel)
	}
	return db
}

func (r *DispatchSessionRepositoryImpl) first(ctx context.Context, filter models.DispatchSessionFilter, orderBy string) (*models.DispatchSession, error) {
	rows, err := r.ByFilter(ctx, filter, orderBy, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *DispatchSessionRepositoryImpl) ByOwnerAndID(ctx context.Context, ownerID, sessionID uint) (*models.DispatchSession, error) {
	return r.first(ctx, models.DispatchSessionFilter{ID: &sessionID, OwnerID: &ownerID}, "")
}

func (r *DispatchSessionRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.DispatchSession, error) {
	return r.first(ctx, models.DispatchSessionFilter{UUID: &id}, "")
}

func (r *DispatchSessionRepositoryImpl) LatestByOwnerAndChannel(ctx context.Context, ownerID uint, channel models.Channel) (*models.DispatchSession, error) {
	return r.first(ctx, models.DispatchSessionFilter{OwnerID: &ownerID, Channel: &channel}, "started_at DESC, id DESC")
}

// Close stores the final totals of a session
func (r *DispatchSessionRepositoryImpl) Close(ctx context.Context, session *models.DispatchSession) error {
	if session == nil || session.ID == 0 {
		return errors.New("cannot close an unsaved dispatch session")
	}

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Model(&models.DispatchSession{}).Where("id = ?", session.ID).Updates(map[string]any{
			"ended_at":    session.EndedAt,
			"dispatched":  session.Dispatched,
			"sent":        session.Sent,
			"failed":      session.Failed,
			"invalid":     session.Invalid,
			"duration_ms": session.DurationMS,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to close dispatch session %d: %w", session.ID, err)
		}
		return nil
	})
}
