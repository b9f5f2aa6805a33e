package businessflow

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

// Provider message types that carry a call outcome
const (
	callbackEndOfCallReport = "end-of-call-report"
	callbackStatusUpdate    = "status-update"
	callStatusEnded         = "ended"
)

// DeliveryCallbackFlow records provider-reported call outcomes
type DeliveryCallbackFlow interface {
	HandleCallback(ctx context.Context, req *dto.ProviderCallbackRequest, metadata *ClientMetadata) (*dto.ProviderCallbackResponse, error)
}

// DeliveryCallbackFlowImpl implements provider callback ingestion
type DeliveryCallbackFlowImpl struct {
	campaignContactRepo repository.CampaignContactRepository
	deliveryRepo        repository.DeliveryRecordRepository
	cfg                 config.ProviderConfig
	logger              logrus.FieldLogger
}

// NewDeliveryCallbackFlow creates a new delivery callback flow instance
func NewDeliveryCallbackFlow(
	campaignContactRepo repository.CampaignContactRepository,
	deliveryRepo repository.DeliveryRecordRepository,
	deps FlowDeps,
	cfg config.ProviderConfig,
) DeliveryCallbackFlow {
	deps = deps.withDefaults()
	return &DeliveryCallbackFlowImpl{
		campaignContactRepo: campaignContactRepo,
		deliveryRepo:        deliveryRepo,
		cfg:                 cfg,
		logger:              deps.Logger,
	}
}

// metadataID reads a positive id that may arrive as a JSON number or a string
func metadataID(meta map[string]any, key string) (uint, bool) {
	raw, ok := meta[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != float64(uint(v)) {
			return 0, false
		}
		return uint(v), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

// HandleCallback stores end-of-call reports as terminal delivery records. Status updates are stored
// as non-terminal unless the call ended. Other message types are acknowledged and ignored.
func (f *DeliveryCallbackFlowImpl) HandleCallback(ctx context.Context, req *dto.ProviderCallbackRequest, metadata *ClientMetadata) (*dto.ProviderCallbackResponse, error) {
	secret := strings.TrimSpace(f.cfg.WebhookSecret)
	if secret == "" || req == nil || subtle.ConstantTimeCompare([]byte(secret), []byte(req.Secret)) != 1 {
		return nil, NewBusinessError("CALLBACK_UNAUTHORIZED", "Invalid provider callback secret", ErrCallbackUnauthorized)
	}

	msg := req.Message
	msgType := strings.ToLower(strings.TrimSpace(msg.Type))
	if msgType != callbackEndOfCallReport && msgType != callbackStatusUpdate {
		return &dto.ProviderCallbackResponse{Success: true, Reason: fmt.Sprintf("ignored message type %q", msg.Type)}, nil
	}

	campaignID, ok := metadataID(msg.Call.Metadata, "campaign_id")
	if !ok {
		return nil, NewBusinessError("CALLBACK_INVALID", "call.metadata.campaign_id is required", ErrCallbackInvalid)
	}
	contactID, ok := metadataID(msg.Call.Metadata, "contact_id")
	if !ok {
		return nil, NewBusinessError("CALLBACK_INVALID", "call.metadata.contact_id is required", ErrCallbackInvalid)
	}

	rows, err := f.campaignContactRepo.ByFilter(ctx, models.CampaignContactFilter{
		CampaignID: &campaignID,
		ContactIDs: []uint{contactID},
	}, "", 1, 0)
	if err != nil {
		return nil, NewBusinessError("CALLBACK_LOOKUP_FAILED", "Failed to lookup campaign contact", err)
	}
	if len(rows) == 0 {
		return nil, NewBusinessError("CALLBACK_INVALID", "Unknown campaign contact", ErrCallbackInvalid)
	}
	row := rows[0]

	status := strings.ToLower(strings.TrimSpace(msg.Status))
	terminal := msgType == callbackEndOfCallReport || status == callStatusEnded
	if status == "" && msgType == callbackEndOfCallReport {
		status = callStatusEnded
	}
	if status == "" {
		return nil, NewBusinessError("CALLBACK_INVALID", "Status is required for status updates", ErrCallbackInvalid)
	}

	record := &models.DeliveryRecord{
		OwnerID:    row.OwnerID,
		CampaignID: row.CampaignID,
		ContactID:  row.ContactID,
		Channel:    models.ChannelCall,
		Status:     status,
		Terminal:   terminal,
	}
	if ref := strings.TrimSpace(msg.Call.ID); ref != "" {
		record.ProviderRef = utils.ToPtr(ref)
	}
	if reason := strings.TrimSpace(msg.EndedReason); reason != "" {
		record.EndedReason = utils.ToPtr(reason)
	}
	if err := f.deliveryRepo.Save(ctx, record); err != nil {
		return nil, NewBusinessError("DELIVERY_RECORD_FAILED", "Failed to record delivery outcome", err)
	}

	f.logger.WithFields(logrus.Fields{
		"owner_id":     row.OwnerID,
		"campaign_id":  row.CampaignID,
		"contact_id":   row.ContactID,
		"status":       status,
		"terminal":     terminal,
		"provider_ref": msg.Call.ID,
		"request_id":   metadata.requestID(),
	}).Info("Provider callback recorded")

	return &dto.ProviderCallbackResponse{Success: true, Recorded: true, Terminal: terminal}, nil
}
