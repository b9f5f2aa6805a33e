package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

// ProviderSubmitFlow submits a batch straight to the calling provider
type ProviderSubmitFlow interface {
	// SubmitBatch returns the partial response together with the error when a chunk fails
	SubmitBatch(ctx context.Context, identity Identity, req *dto.ProviderSubmitRequest, metadata *ClientMetadata) (*dto.ProviderSubmitResponse, error)
}

// ProviderSubmitFlowImpl implements direct batch submission
type ProviderSubmitFlowImpl struct {
	batchRepo   repository.BatchRepository
	chunker     ProviderChunker
	reporter    services.ErrorReporter
	dispatchCfg config.DispatchConfig
	logger      logrus.FieldLogger
}

// NewProviderSubmitFlow creates a new provider submit flow instance
func NewProviderSubmitFlow(batchRepo repository.BatchRepository, chunker ProviderChunker, deps FlowDeps, dispatchCfg config.DispatchConfig) ProviderSubmitFlow {
	deps = deps.withDefaults()
	return &ProviderSubmitFlowImpl{
		batchRepo:   batchRepo,
		chunker:     chunker,
		reporter:    deps.Reporter,
		dispatchCfg: dispatchCfg,
		logger:      deps.Logger,
	}
}

func (f *ProviderSubmitFlowImpl) SubmitBatch(ctx context.Context, identity Identity, req *dto.ProviderSubmitRequest, metadata *ClientMetadata) (*dto.ProviderSubmitResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if req == nil || req.BatchID == 0 {
		return nil, NewBusinessError("BATCH_ID_REQUIRED", "Batch id is required", ErrBatchIDRequired)
	}

	batch, err := f.batchRepo.ByOwnerAndID(ctx, identity.OwnerID, req.BatchID)
	if err != nil {
		return nil, NewBusinessError("BATCH_LOOKUP_FAILED", "Failed to lookup batch", err)
	}
	if batch == nil {
		return nil, NewBusinessError("BATCH_NOT_FOUND", "Batch not found", ErrBatchNotFound)
	}

	resp := &dto.ProviderSubmitResponse{
		Success:   true,
		Provider:  f.chunker.ProviderName(),
		Campaigns: make([]dto.ProviderCampaignRef, 0),
	}

	customers := make([]services.ProviderCustomer, 0, batch.ContactCount)
	var afterID uint
	for {
		members, err := f.batchRepo.Members(ctx, batch.ID, afterID, utils.DefaultSeederChunkSize)
		if err != nil {
			return nil, NewBusinessError("BATCH_MEMBERS_LOOKUP_FAILED", "Failed to read batch members", err)
		}
		for _, m := range members {
			verdict := ValidateContact(m.Phone, m.OptedOut, f.dispatchCfg.DefaultRegion)
			if !verdict.Valid {
				resp.Totals.Skipped++
				continue
			}
			customers = append(customers, services.ProviderCustomer{Number: verdict.Normalized, Name: m.Name, Email: m.Email})
		}
		if len(members) < utils.DefaultSeederChunkSize {
			break
		}
		afterID = members[len(members)-1].BatchContactID
	}
	if len(customers) == 0 {
		return nil, NewBusinessError("BATCH_EMPTY", "Batch has no dispatchable contacts", ErrBatchEmpty)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = batch.Name
	}

	log := f.logger.WithFields(logrus.Fields{
		"owner_id":   identity.OwnerID,
		"batch_id":   batch.ID,
		"customers":  len(customers),
		"request_id": metadata.requestID(),
	})

	refs, err := f.chunker.SubmitChunks(ctx, name, customers, ChunkOptions{
		AssistantID:  req.AssistantID,
		WorkflowID:   req.WorkflowID,
		SchedulePlan: req.SchedulePlan,
	})
	resp.Campaigns = append(resp.Campaigns, refs...)
	resp.Totals.Campaigns = len(refs)
	for _, ref := range refs {
		resp.Totals.Customers += ref.Count
	}
	if err != nil {
		if IsProviderSubmissionFailed(err) {
			f.reporter.Report(ctx, err, "provider_submit", map[string]any{
				"owner_id":  identity.OwnerID,
				"batch_id":  batch.ID,
				"submitted": len(refs),
			})
		}
		log.WithError(err).WithField("submitted", len(refs)).Warn("Provider batch submission failed")
		resp.Success = false
		resp.Error = err.Error()
		return resp, err
	}

	log.WithField("campaigns", len(refs)).Info("Batch submitted to provider")
	return resp, nil
}
