package businessflow

import (
	"context"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/sirupsen/logrus"
)

const defaultReconcilePageSize = 500

// ReconciliationFlow promotes sent contacts to done once the provider reports a terminal outcome
type ReconciliationFlow interface {
	Reconcile(ctx context.Context, identity Identity, req *dto.ReconcileRequest, metadata *ClientMetadata) (*dto.ReconcileResponse, error)
	ReconcileCampaigns(ctx context.Context, identity Identity, campaigns []*models.Campaign, sessionID *uint) (*dto.ReconcileResponse, error)
}

// ReconciliationFlowImpl implements the reconciliation pass
type ReconciliationFlowImpl struct {
	campaignRepo        repository.CampaignRepository
	campaignContactRepo repository.CampaignContactRepository
	events              *eventRecorder
	cfg                 config.DispatchConfig
	clock               Clock
	logger              logrus.FieldLogger
}

// NewReconciliationFlow creates a new reconciliation flow instance
func NewReconciliationFlow(
	campaignRepo repository.CampaignRepository,
	campaignContactRepo repository.CampaignContactRepository,
	eventRepo repository.DispatchEventRepository,
	deps FlowDeps,
	cfg config.DispatchConfig,
) ReconciliationFlow {
	deps = deps.withDefaults()
	return &ReconciliationFlowImpl{
		campaignRepo:        campaignRepo,
		campaignContactRepo: campaignContactRepo,
		events:              newEventRecorder(eventRepo, deps.Publisher, deps.Logger),
		cfg:                 cfg,
		clock:               deps.Clock,
		logger:              deps.Logger,
	}
}

// Reconcile runs a standalone pass. Without explicit ids every active campaign of any channel is
// covered; ids not owned by the identity are ignored.
func (r *ReconciliationFlowImpl) Reconcile(ctx context.Context, identity Identity, req *dto.ReconcileRequest, metadata *ClientMetadata) (*dto.ReconcileResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	var campaigns []*models.Campaign
	var err error
	if req == nil || len(req.CampaignIDs) == 0 {
		active := models.CampaignStatusActive
		campaigns, err = r.campaignRepo.ByFilter(ctx, models.CampaignFilter{OwnerID: &identity.OwnerID, Status: &active}, "id ASC", 0, 0)
	} else {
		campaigns, err = r.campaignRepo.ByFilter(ctx, models.CampaignFilter{IDs: req.CampaignIDs, OwnerID: &identity.OwnerID}, "id ASC", 0, 0)
	}
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaigns", err)
	}

	resp, err := r.ReconcileCampaigns(ctx, identity, campaigns, nil)
	if err != nil {
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{
		"owner_id":   identity.OwnerID,
		"campaigns":  len(campaigns),
		"promoted":   resp.Promoted,
		"request_id": metadata.requestID(),
	}).Info("Reconciliation pass finished")
	return resp, nil
}

// ReconcileCampaigns pages sent rows with a terminal delivery record and moves each to done
func (r *ReconciliationFlowImpl) ReconcileCampaigns(ctx context.Context, identity Identity, campaigns []*models.Campaign, sessionID *uint) (*dto.ReconcileResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	resp := &dto.ReconcileResponse{Success: true, PerCampaign: make(map[uint]int, len(campaigns))}
	channels := make(map[uint]models.Channel, len(campaigns))
	for _, c := range campaigns {
		resp.PerCampaign[c.ID] = 0
		channels[c.ID] = c.Channel
	}
	if len(campaigns) == 0 {
		return resp, nil
	}
	campaignIDs := campaignIDsOf(campaigns)

	pageSize := r.cfg.ReconcilePageSize
	if pageSize <= 0 {
		pageSize = defaultReconcilePageSize
	}

	var afterID uint
	for {
		rows, err := r.campaignContactRepo.ListSentWithTerminalDelivery(ctx, campaignIDs, afterID, pageSize)
		if err != nil {
			return nil, NewBusinessError("RECONCILIATION_FAILED", "Failed to list reconcilable contacts", err)
		}
		for _, row := range rows {
			afterID = row.ID
			if row.OwnerID != identity.OwnerID {
				continue
			}
			promoted, err := r.campaignContactRepo.MarkDone(ctx, row.ID, r.clock.now())
			if err != nil {
				return nil, NewBusinessError("RECONCILIATION_FAILED", "Failed to promote contact", err)
			}
			if !promoted {
				continue
			}
			resp.Promoted++
			resp.PerCampaign[row.CampaignID]++
			dispatchContactsTotal.WithLabelValues(string(channels[row.CampaignID]), outcomeDone).Inc()
			r.events.record(ctx, sessionID, row, models.DispatchEventDone, "")
		}
		if len(rows) < pageSize {
			return resp, nil
		}
	}
}

func campaignIDsOf(campaigns []*models.Campaign) []uint {
	ids := make([]uint, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}
	return ids
}
