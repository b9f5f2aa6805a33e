package businessflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

// ChannelDispatchFlow delivers pending contacts of webhook channels
type ChannelDispatchFlow interface {
	RunWebhookPass(ctx context.Context, identity Identity, channel string, metadata *ClientMetadata) (*dto.WebhookPassResponse, error)
}

// ChannelDispatchFlowImpl implements the webhook channel pass
type ChannelDispatchFlowImpl struct {
	campaignRepo        repository.CampaignRepository
	campaignContactRepo repository.CampaignContactRepository
	client              services.WebhookClient
	events              *eventRecorder
	pacers              PacerFactory
	dispatchCfg         config.DispatchConfig
	webhookCfg          config.WebhookConfig
	clock               Clock
	logger              logrus.FieldLogger
}

// NewChannelDispatchFlow creates a new channel dispatch flow instance
func NewChannelDispatchFlow(
	campaignRepo repository.CampaignRepository,
	campaignContactRepo repository.CampaignContactRepository,
	eventRepo repository.DispatchEventRepository,
	client services.WebhookClient,
	deps FlowDeps,
	dispatchCfg config.DispatchConfig,
	webhookCfg config.WebhookConfig,
) ChannelDispatchFlow {
	deps = deps.withDefaults()
	return &ChannelDispatchFlowImpl{
		campaignRepo:        campaignRepo,
		campaignContactRepo: campaignContactRepo,
		client:              client,
		events:              newEventRecorder(eventRepo, deps.Publisher, deps.Logger),
		pacers:              deps.Pacers,
		dispatchCfg:         dispatchCfg,
		webhookCfg:          webhookCfg,
		clock:               deps.Clock,
		logger:              deps.Logger,
	}
}

func (f *ChannelDispatchFlowImpl) pullSize() int {
	if f.webhookCfg.PullSize > 0 {
		return f.webhookCfg.PullSize
	}
	return utils.DefaultWebhookPullSize
}

// resolveWebhookURL prefers the campaign destination over the global fallback. Only absolute
// http(s) URLs are accepted.
func (f *ChannelDispatchFlowImpl) resolveWebhookURL(campaign *models.Campaign) (string, bool) {
	raw := strings.TrimSpace(f.webhookCfg.DefaultURL)
	if campaign.WebhookURL != nil && strings.TrimSpace(*campaign.WebhookURL) != "" {
		raw = strings.TrimSpace(*campaign.WebhookURL)
	}
	if raw == "" {
		return "", false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return u.String(), true
}

// RunWebhookPass walks every active campaign of the channel once, pulling a bounded number of
// pending contacts from each. Delivery failures become row states and the pass continues.
func (f *ChannelDispatchFlowImpl) RunWebhookPass(ctx context.Context, identity Identity, channel string, metadata *ClientMetadata) (*dto.WebhookPassResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	ch := models.Channel(strings.ToLower(strings.TrimSpace(channel)))
	if !ch.Valid() || ch == models.ChannelCall {
		return nil, NewBusinessErrorf("INVALID_CHANNEL", "Channel %q is not a webhook channel", ErrInvalidChannel, channel)
	}

	campaigns, err := f.campaignRepo.ListActive(ctx, identity.OwnerID, ch)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to list active campaigns", err)
	}

	log := f.logger.WithFields(logrus.Fields{
		"owner_id":   identity.OwnerID,
		"channel":    ch,
		"request_id": metadata.requestID(),
	})

	resp := &dto.WebhookPassResponse{
		Success:     true,
		Channel:     string(ch),
		Diagnostics: make([]dto.WebhookCampaignDiagnostic, 0, len(campaigns)),
	}
	for _, campaign := range campaigns {
		if ctx.Err() != nil {
			break
		}
		diag := f.dispatchCampaign(ctx, campaign, log.WithField("campaign_id", campaign.ID))
		resp.Processed += diag.Sent + diag.Failed + diag.Skipped
		resp.Diagnostics = append(resp.Diagnostics, diag)
	}

	log.WithFields(logrus.Fields{
		"campaigns": len(campaigns),
		"processed": resp.Processed,
	}).Info("Webhook pass finished")
	return resp, nil
}

func (f *ChannelDispatchFlowImpl) dispatchCampaign(ctx context.Context, campaign *models.Campaign, log logrus.FieldLogger) dto.WebhookCampaignDiagnostic {
	params := ParseCampaignParams(campaign.Description, f.webhookCfg.DefaultRatePerSecond)
	diag := dto.WebhookCampaignDiagnostic{
		CampaignID: campaign.ID,
		IntervalMS: params.Interval.Milliseconds(),
	}

	rows, err := f.campaignContactRepo.OldestPending(ctx, campaign.ID, f.pullSize())
	if err != nil {
		diag.Error = err.Error()
		log.WithError(err).Warn("Failed to pull pending contacts")
		return diag
	}
	if len(rows) == 0 {
		return diag
	}

	target, targetOK := f.resolveWebhookURL(campaign)
	pacer := f.pacers(params.Interval)
	channel := string(campaign.Channel)
	posted := false

	for _, row := range rows {
		var phone string
		var optedOut bool
		if row.Contact != nil {
			phone = row.Contact.Phone
			optedOut = row.Contact.OptedOut
		}

		if !hasPhone(phone) {
			if f.markInvalid(ctx, row, models.ReasonNoPhone, log) {
				diag.Skipped++
				dispatchContactsTotal.WithLabelValues(channel, outcomeSkipped).Inc()
			}
			continue
		}
		verdict := ValidateContact(phone, optedOut, f.dispatchCfg.DefaultRegion)
		if !verdict.Valid {
			if f.markInvalid(ctx, row, verdict.Reason, log) {
				diag.Failed++
				dispatchContactsTotal.WithLabelValues(channel, outcomeInvalid).Inc()
			}
			continue
		}
		if !targetOK {
			if f.markInvalid(ctx, row, models.ReasonInvalidWebhook, log) {
				diag.Failed++
				dispatchContactsTotal.WithLabelValues(channel, outcomeFailed).Inc()
			}
			continue
		}

		if posted {
			if err := pacer.Wait(ctx); err != nil {
				return diag
			}
		}
		posted = true

		payload := services.WebhookPayload{
			Channel:    channel,
			CampaignID: campaign.ID,
			ContactID:  row.ContactID,
			To:         verdict.Normalized,
			Prompt:     RenderMessage(params.Message, row.Contact, verdict.Normalized),
			Contact: services.WebhookContact{
				ID:    row.ContactID,
				Name:  row.Contact.Name,
				Phone: verdict.Normalized,
				Email: row.Contact.Email,
			},
		}
		status, err := f.client.Post(ctx, target, payload)
		reason := ""
		switch {
		case err != nil:
			reason = fmt.Sprintf("Webhook error: %v", err)
		case status < 200 || status >= 300:
			reason = fmt.Sprintf("HTTP %d", status)
		}

		if reason != "" {
			failed, ferr := f.campaignContactRepo.MarkFailed(ctx, row.ID, reason)
			if ferr != nil {
				log.WithError(ferr).WithField("campaign_contact_id", row.ID).Warn("Failed to mark contact failed")
				continue
			}
			if !failed {
				diag.Skipped++
				dispatchContactsTotal.WithLabelValues(channel, outcomeSkipped).Inc()
				continue
			}
			diag.Failed++
			dispatchContactsTotal.WithLabelValues(channel, outcomeFailed).Inc()
			f.events.record(ctx, nil, row, models.DispatchEventFailed, reason)
			continue
		}

		sent, err := f.campaignContactRepo.MarkSent(ctx, row.ID, f.clock.now())
		if err != nil {
			log.WithError(err).WithField("campaign_contact_id", row.ID).Warn("Failed to mark contact sent")
			continue
		}
		if !sent {
			diag.Skipped++
			dispatchContactsTotal.WithLabelValues(channel, outcomeSkipped).Inc()
			continue
		}
		diag.Sent++
		dispatchContactsTotal.WithLabelValues(channel, outcomeSent).Inc()
		f.events.record(ctx, nil, row, models.DispatchEventSent, "")
	}

	return diag
}

// markInvalid reports whether the row was still pending and is now failed
func (f *ChannelDispatchFlowImpl) markInvalid(ctx context.Context, row *models.CampaignContact, reason string, log logrus.FieldLogger) bool {
	failed, err := f.campaignContactRepo.MarkInvalid(ctx, row.ID, reason)
	if err != nil {
		log.WithError(err).WithField("campaign_contact_id", row.ID).Warn("Failed to mark contact invalid")
		return false
	}
	if failed {
		f.events.record(ctx, nil, row, models.DispatchEventInvalid, reason)
	}
	return failed
}
