package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

// SeedFlow handles populating a campaign's dispatch queue from its linked batches
type SeedFlow interface {
	SeedCampaign(ctx context.Context, identity Identity, req *dto.SeedCampaignRequest, metadata *ClientMetadata) (*dto.SeedCampaignResponse, error)
}

// SeedFlowImpl implements the seeding business flow
type SeedFlowImpl struct {
	campaignRepo        repository.CampaignRepository
	batchRepo           repository.BatchRepository
	campaignContactRepo repository.CampaignContactRepository
	cfg                 config.DispatchConfig
	logger              logrus.FieldLogger
}

// NewSeedFlow creates a new seed flow instance
func NewSeedFlow(
	campaignRepo repository.CampaignRepository,
	batchRepo repository.BatchRepository,
	campaignContactRepo repository.CampaignContactRepository,
	deps FlowDeps,
	cfg config.DispatchConfig,
) SeedFlow {
	deps = deps.withDefaults()
	return &SeedFlowImpl{
		campaignRepo:        campaignRepo,
		batchRepo:           batchRepo,
		campaignContactRepo: campaignContactRepo,
		cfg:                 cfg,
		logger:              deps.Logger,
	}
}

// SeedCampaign activates the campaign and queues every linked batch member not already queued.
// Re-running is safe: rows already present are counted as skipped duplicates.
func (s *SeedFlowImpl) SeedCampaign(ctx context.Context, identity Identity, req *dto.SeedCampaignRequest, metadata *ClientMetadata) (*dto.SeedCampaignResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if req == nil || req.CampaignID == 0 {
		return nil, NewBusinessError("CAMPAIGN_ID_REQUIRED", "Campaign id is required", ErrCampaignIDRequired)
	}

	campaign, err := s.campaignRepo.ByOwnerAndID(ctx, identity.OwnerID, req.CampaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	if err := s.campaignRepo.Activate(ctx, campaign.ID, req.WebhookURL); err != nil {
		return nil, NewBusinessError("CAMPAIGN_ACTIVATION_FAILED", "Failed to activate campaign", err)
	}

	batchIDs, err := s.campaignRepo.LinkedBatchIDs(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_BATCHES_LOOKUP_FAILED", "Failed to resolve campaign batches", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"owner_id":    identity.OwnerID,
		"campaign_id": campaign.ID,
		"request_id":  metadata.requestID(),
	})

	resp := &dto.SeedCampaignResponse{
		Success:    true,
		CampaignID: campaign.ID,
		Complete:   true,
		Chunks:     make([]dto.SeedChunkResult, 0),
	}
	seen := make(map[uint]struct{})

	for _, batchID := range batchIDs {
		s.seedBatch(ctx, campaign, batchID, seen, resp, log)
	}

	log.WithFields(logrus.Fields{
		"batches":            len(batchIDs),
		"seeded_queued":      resp.SeededQueued,
		"seeded_invalid":     resp.SeededInvalid,
		"skipped_duplicates": resp.SkippedDuplicates,
		"complete":           resp.Complete,
	}).Info("Campaign seeded")

	return resp, nil
}

func (s *SeedFlowImpl) chunkSize() int {
	if s.cfg.SeederChunkSize > 0 {
		return s.cfg.SeederChunkSize
	}
	return utils.DefaultSeederChunkSize
}

// seedBatch pages one batch by member id. A failed page read stops the batch since the cursor cannot advance.
func (s *SeedFlowImpl) seedBatch(ctx context.Context, campaign *models.Campaign, batchID uint, seen map[uint]struct{}, resp *dto.SeedCampaignResponse, log logrus.FieldLogger) {
	var afterID uint
	offset := 0

	for {
		members, err := s.batchRepo.Members(ctx, batchID, afterID, s.chunkSize())
		if err != nil {
			resp.Complete = false
			resp.Chunks = append(resp.Chunks, dto.SeedChunkResult{BatchID: batchID, Offset: offset, Error: err.Error()})
			log.WithError(err).WithField("batch_id", batchID).Warn("Failed to read batch members")
			return
		}
		if len(members) == 0 {
			return
		}
		afterID = members[len(members)-1].BatchContactID

		result := s.seedChunk(ctx, campaign, members, seen)
		result.BatchID = batchID
		result.Offset = offset
		offset += len(members)

		resp.SeededQueued += result.Queued
		resp.SeededInvalid += result.Invalid
		resp.SkippedDuplicates += result.Skipped
		if result.Error != "" {
			resp.Complete = false
			log.WithFields(logrus.Fields{
				"batch_id": batchID,
				"offset":   result.Offset,
				"error":    result.Error,
			}).Warn("Seed chunk failed")
		}
		resp.Chunks = append(resp.Chunks, result)

		if len(members) < s.chunkSize() {
			return
		}
	}
}

// seedChunk classifies one page of members and writes at most one insert per bucket
func (s *SeedFlowImpl) seedChunk(ctx context.Context, campaign *models.Campaign, members []models.BatchMember, seen map[uint]struct{}) dto.SeedChunkResult {
	result := dto.SeedChunkResult{Size: len(members)}

	candidates := make([]models.BatchMember, 0, len(members))
	candidateIDs := make([]uint, 0, len(members))
	local := make(map[uint]struct{}, len(members))
	for _, m := range members {
		if _, dup := seen[m.ContactID]; dup {
			result.Skipped++
			continue
		}
		if _, dup := local[m.ContactID]; dup {
			result.Skipped++
			continue
		}
		local[m.ContactID] = struct{}{}
		candidates = append(candidates, m)
		candidateIDs = append(candidateIDs, m.ContactID)
	}

	existing, err := s.campaignContactRepo.ExistingContactIDs(ctx, campaign.ID, candidateIDs)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var queued, invalid []*models.CampaignContact
	for _, m := range candidates {
		if _, ok := existing[m.ContactID]; ok {
			result.Skipped++
			continue
		}
		row := &models.CampaignContact{
			OwnerID:    campaign.OwnerID,
			CampaignID: campaign.ID,
			ContactID:  m.ContactID,
			Status:     models.CampaignContactStatusPending,
		}
		verdict := ValidateContact(m.Phone, m.OptedOut, s.cfg.DefaultRegion)
		if !verdict.Valid {
			row.Status = models.CampaignContactStatusFailed
			row.LastError = utils.ToPtr(verdict.Reason)
			invalid = append(invalid, row)
			continue
		}
		queued = append(queued, row)
	}

	// Rows lost to a concurrent seeder hit the unique key and count as skipped
	inserted, err := s.campaignContactRepo.InsertIgnoreDuplicates(ctx, queued)
	if err != nil {
		result.Error = fmt.Sprintf("queued insert: %v", err)
		return result
	}
	result.Queued = int(inserted)
	result.Skipped += len(queued) - int(inserted)

	inserted, err = s.campaignContactRepo.InsertIgnoreDuplicates(ctx, invalid)
	if err != nil {
		result.Error = fmt.Sprintf("invalid insert: %v", err)
		return result
	}
	result.Invalid = int(inserted)
	result.Skipped += len(invalid) - int(inserted)

	for id := range local {
		seen[id] = struct{}{}
	}
	return result
}
