// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// BatchRepository defines operations for batches and their member snapshots
type BatchRepository interface {
	Repository[models.Batch, models.BatchFilter]
	ByOwnerAndID(ctx context.Context, ownerID, batchID uint) (*models.Batch, error)
	AddMembers(ctx context.Context, batchID uint, members []*models.BatchContact) error
	// Members pages a batch by ascending batch_contacts.id, starting after afterID
	Members(ctx context.Context, batchID, afterID uint, limit int) ([]models.BatchMember, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByOwnerAndID(ctx context.Context, ownerID, campaignID uint) (*models.Campaign, error)
	ListActive(ctx context.Context, ownerID uint, channel models.Channel) ([]*models.Campaign, error)
	Activate(ctx context.Context, campaignID uint, webhookURL *string) error
	LinkBatch(ctx context.Context, campaignID, batchID uint) error
	LinkedBatchIDs(ctx context.Context, campaignID uint) ([]uint, error)
}

// CampaignContactRepository defines operations on the per-campaign dispatch queue
type CampaignContactRepository interface {
	Repository[models.CampaignContact, models.CampaignContactFilter]
	ExistingContactIDs(ctx context.Context, campaignID uint, contactIDs []uint) (map[uint]struct{}, error)
	InsertIgnoreDuplicates(ctx context.Context, rows []*models.CampaignContact) (int64, error)
	OldestPending(ctx context.Context, campaignID uint, limit int) ([]*models.CampaignContact, error)
	// MarkSent moves a pending row to sent. It returns false when the row was no longer pending.
	MarkSent(ctx context.Context, id uint, at time.Time) (bool, error)
	// MarkInvalid fails a pending row that was never attempted. It returns false when the row was no longer pending.
	MarkInvalid(ctx context.Context, id uint, reason string) (bool, error)
	// MarkFailed fails a pending row after a delivery attempt. It returns false when the row was no longer pending.
	MarkFailed(ctx context.Context, id uint, reason string) (bool, error)
	// MarkSendFailed moves a sent row to failed when delivery was rejected after the claim
	MarkSendFailed(ctx context.Context, id uint, reason string) (bool, error)
	// MarkDone moves a sent row to done. It returns false when the row was no longer sent.
	MarkDone(ctx context.Context, id uint, at time.Time) (bool, error)
	CountPendingByCampaign(ctx context.Context, campaignIDs []uint) (map[uint]int64, error)
	ListSentWithTerminalDelivery(ctx context.Context, campaignIDs []uint, afterID uint, limit int) ([]*models.CampaignContact, error)
}

// SchedulingQueueRepository defines operations for the provider submission queue
type SchedulingQueueRepository interface {
	Repository[models.SchedulingQueueRow, models.SchedulingQueueFilter]
	Oldest(ctx context.Context, ownerID, batchID uint, limit int) ([]*models.SchedulingQueueRow, error)
	DeleteByIDs(ctx context.Context, ownerID uint, ids []uint) (int64, error)
}

// SchedulingLogRepository defines operations for drain log entries
type SchedulingLogRepository interface {
	Repository[models.SchedulingLog, models.SchedulingLogFilter]
}

// DispatchSessionRepository defines operations for coordinator sessions
type DispatchSessionRepository interface {
	Repository[models.DispatchSession, models.DispatchSessionFilter]
	ByOwnerAndID(ctx context.Context, ownerID, sessionID uint) (*models.DispatchSession, error)
	ByUUID(ctx context.Context, id uuid.UUID) (*models.DispatchSession, error)
	LatestByOwnerAndChannel(ctx context.Context, ownerID uint, channel models.Channel) (*models.DispatchSession, error)
	Close(ctx context.Context, session *models.DispatchSession) error
}

// DispatchEventRepository defines operations for the dispatch audit log
type DispatchEventRepository interface {
	Repository[models.DispatchEvent, models.DispatchEventFilter]
	ListBySession(ctx context.Context, ownerID, sessionID uint) ([]*models.DispatchEvent, error)
}

// DeliveryRecordRepository defines operations for provider outcome records
type DeliveryRecordRepository interface {
	Repository[models.DeliveryRecord, models.DeliveryRecordFilter]
}
