package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

const defaultDrainLockTTL = 10 * time.Minute

// QueueDrainFlow submits a batch's scheduling queue to the provider chunk by chunk
type QueueDrainFlow interface {
	// Drain returns the partial response together with the error when a chunk fails
	Drain(ctx context.Context, identity Identity, req *dto.QueueDrainRequest, metadata *ClientMetadata) (*dto.QueueDrainResponse, error)
}

// QueueDrainFlowImpl implements the queue drain loop
type QueueDrainFlowImpl struct {
	batchRepo repository.BatchRepository
	queueRepo repository.SchedulingQueueRepository
	logRepo   repository.SchedulingLogRepository
	chunker   ProviderChunker
	reporter  services.ErrorReporter
	cache     services.SessionCache
	cfg       config.ProviderConfig
	region    string
	lockTTL   time.Duration
	logger    logrus.FieldLogger
}

// NewQueueDrainFlow creates a new queue drain flow instance. A cache in deps enables the per-batch lock.
func NewQueueDrainFlow(
	batchRepo repository.BatchRepository,
	queueRepo repository.SchedulingQueueRepository,
	logRepo repository.SchedulingLogRepository,
	chunker ProviderChunker,
	deps FlowDeps,
	dispatchCfg config.DispatchConfig,
	cfg config.ProviderConfig,
	lockTTL time.Duration,
) QueueDrainFlow {
	deps = deps.withDefaults()
	if lockTTL <= 0 {
		lockTTL = defaultDrainLockTTL
	}
	return &QueueDrainFlowImpl{
		batchRepo: batchRepo,
		queueRepo: queueRepo,
		logRepo:   logRepo,
		chunker:   chunker,
		reporter:  deps.Reporter,
		cache:     deps.Cache,
		cfg:       cfg,
		region:    dispatchCfg.DefaultRegion,
		lockTTL:   lockTTL,
		logger:    deps.Logger,
	}
}

func (f *QueueDrainFlowImpl) pageSize() int {
	if f.cfg.MaxPerCampaign > 0 && f.cfg.MaxPerCampaign <= utils.ProviderMaxPerCampaign {
		return f.cfg.MaxPerCampaign
	}
	return utils.ProviderMaxPerCampaign
}

// Drain deletes queue rows only after the provider accepted them. A crash between acceptance and
// delete resubmits those rows on the next drain.
func (f *QueueDrainFlowImpl) Drain(ctx context.Context, identity Identity, req *dto.QueueDrainRequest, metadata *ClientMetadata) (*dto.QueueDrainResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if req == nil || req.BatchID == 0 {
		return nil, NewBusinessError("BATCH_ID_REQUIRED", "Batch id is required", ErrBatchIDRequired)
	}
	if _, _, err := ResolveAddressing(req.AssistantID, req.WorkflowID, f.cfg); err != nil {
		return nil, err
	}
	if _, err := resolveSchedulePlan(req.SchedulePlan, f.cfg); err != nil {
		return nil, err
	}

	batch, err := f.batchRepo.ByOwnerAndID(ctx, identity.OwnerID, req.BatchID)
	if err != nil {
		return nil, NewBusinessError("BATCH_LOOKUP_FAILED", "Failed to lookup batch", err)
	}
	if batch == nil {
		return nil, NewBusinessError("BATCH_NOT_FOUND", "Batch not found", ErrBatchNotFound)
	}

	log := f.logger.WithFields(logrus.Fields{
		"owner_id":   identity.OwnerID,
		"batch_id":   batch.ID,
		"request_id": metadata.requestID(),
	})

	if f.cache != nil {
		release, ok, err := f.cache.AcquireLock(ctx, fmt.Sprintf("drain:%d:%d", identity.OwnerID, batch.ID), f.lockTTL)
		switch {
		case err != nil:
			log.WithError(err).Warn("Drain lock unavailable, continuing without it")
		case !ok:
			return nil, NewBusinessError("DRAIN_IN_PROGRESS", "Another drain of this batch is running", ErrDrainInProgress)
		default:
			defer release()
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = batch.Name
	}
	opts := ChunkOptions{
		AssistantID:    req.AssistantID,
		WorkflowID:     req.WorkflowID,
		SchedulePlan:   req.SchedulePlan,
		MaxPerCampaign: f.pageSize(),
	}

	resp := &dto.QueueDrainResponse{Success: true, Campaigns: make([]dto.ProviderCampaignRef, 0)}
	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			resp.Success = false
			resp.Error = err.Error()
			return resp, err
		}

		rows, err := f.queueRepo.Oldest(ctx, identity.OwnerID, batch.ID, f.pageSize())
		if err != nil {
			return resp, NewBusinessError("QUEUE_READ_FAILED", "Failed to read scheduling queue", err)
		}
		if len(rows) == 0 {
			break
		}

		customers, ids, dropped := f.customersOf(rows, log)
		chunkName := name
		if iteration > 1 {
			chunkName = fmt.Sprintf("%s #%d", name, iteration)
		}

		var refs []dto.ProviderCampaignRef
		if len(customers) > 0 {
			refs, err = f.chunker.SubmitChunks(ctx, chunkName, customers, opts)
			if err != nil {
				f.appendLog(ctx, &models.SchedulingLog{
					OwnerID: identity.OwnerID,
					BatchID: batch.ID,
					Count:   len(customers),
					Status:  models.SchedulingLogStatusFailed,
					Error:   utils.ToPtr(err.Error()),
				}, log)
				f.reporter.Report(ctx, err, "provider_drain", map[string]any{
					"owner_id":  identity.OwnerID,
					"batch_id":  batch.ID,
					"rows":      len(rows),
					"submitted": len(resp.Campaigns),
				})
				log.WithError(err).WithField("submitted", len(resp.Campaigns)).Error("Queue drain stopped on provider failure")

				resp.Success = false
				resp.Error = err.Error()
				return resp, err
			}
		}

		deleted, err := f.queueRepo.DeleteByIDs(ctx, identity.OwnerID, ids)
		if err != nil {
			return resp, NewBusinessError("QUEUE_DELETE_FAILED", "Failed to delete submitted queue rows", err)
		}
		queueRowsDrainedTotal.Add(float64(deleted))

		if dropped.total() > 0 {
			f.appendLog(ctx, &models.SchedulingLog{
				OwnerID: identity.OwnerID,
				BatchID: batch.ID,
				Count:   dropped.total(),
				Status:  models.SchedulingLogStatusSkipped,
				Error:   utils.ToPtr(dropped.String()),
			}, log)
			resp.Skipped += dropped.total()
		}

		for _, ref := range refs {
			f.appendLog(ctx, &models.SchedulingLog{
				OwnerID:              identity.OwnerID,
				BatchID:              batch.ID,
				ProviderCampaignID:   utils.ToPtr(ref.ID),
				ProviderCampaignName: utils.ToPtr(ref.Name),
				Count:                ref.Count,
				Status:               models.SchedulingLogStatusSubmitted,
			}, log)
		}
		resp.Campaigns = append(resp.Campaigns, refs...)
		resp.TotalQueuedProcessed += int(deleted)
	}

	log.WithFields(logrus.Fields{
		"campaigns": len(resp.Campaigns),
		"processed": resp.TotalQueuedProcessed,
	}).Info("Queue drained")
	return resp, nil
}

// droppedRows counts queue rows that leave with their chunk without being submitted
type droppedRows struct {
	undecodable int
	invalid     int
}

func (d droppedRows) total() int { return d.undecodable + d.invalid }

func (d droppedRows) String() string {
	return fmt.Sprintf("dropped %d rows: %d undecodable payload, %d %s", d.total(), d.undecodable, d.invalid, strings.ToLower(models.ReasonInvalidPhone))
}

// customersOf maps payload snapshots to provider customers with normalized numbers. Rows that
// cannot be decoded or fail validation are still returned in ids so they leave the queue with the chunk.
func (f *QueueDrainFlowImpl) customersOf(rows []*models.SchedulingQueueRow, log logrus.FieldLogger) ([]services.ProviderCustomer, []uint, droppedRows) {
	customers := make([]services.ProviderCustomer, 0, len(rows))
	ids := make([]uint, 0, len(rows))
	var dropped droppedRows
	for _, row := range rows {
		ids = append(ids, row.ID)

		var payload models.QueuePayload
		if err := json.Unmarshal(row.Payload, &payload); err != nil || strings.TrimSpace(payload.Number) == "" {
			log.WithField("queue_row_id", row.ID).Warn("Dropping queue row without a usable payload")
			dropped.undecodable++
			continue
		}
		verdict := ValidateContact(payload.Number, false, f.region)
		if !verdict.Valid {
			log.WithFields(logrus.Fields{
				"queue_row_id": row.ID,
				"reason":       verdict.Reason,
			}).Warn("Dropping queue row with an undialable number")
			dropped.invalid++
			continue
		}
		customers = append(customers, services.ProviderCustomer{
			Number: verdict.Normalized,
			Name:   payload.Name,
			Email:  payload.Email,
		})
	}
	return customers, ids, dropped
}

func (f *QueueDrainFlowImpl) appendLog(ctx context.Context, entry *models.SchedulingLog, log logrus.FieldLogger) {
	if err := f.logRepo.Save(ctx, entry); err != nil {
		log.WithError(err).Warn("Failed to append scheduling log")
	}
}
