package businessflow

import (
	"context"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/sirupsen/logrus"
)

// eventRecorder appends dispatch events and fans them out. Audit failures are logged, never fatal.
type eventRecorder struct {
	repo      repository.DispatchEventRepository
	publisher services.EventPublisher
	logger    logrus.FieldLogger
}

func newEventRecorder(repo repository.DispatchEventRepository, publisher services.EventPublisher, logger logrus.FieldLogger) *eventRecorder {
	if publisher == nil {
		publisher = services.NewNoopPublisher()
	}
	return &eventRecorder{repo: repo, publisher: publisher, logger: logger}
}

func (r *eventRecorder) record(ctx context.Context, sessionID *uint, row *models.CampaignContact, typ models.DispatchEventType, detail string) {
	event := &models.DispatchEvent{
		OwnerID:           row.OwnerID,
		SessionID:         sessionID,
		CampaignID:        row.CampaignID,
		ContactID:         row.ContactID,
		CampaignContactID: row.ID,
		Type:              typ,
	}
	if detail != "" {
		event.Detail = &detail
	}

	log := r.logger.WithFields(logrus.Fields{
		"campaign_id":         row.CampaignID,
		"campaign_contact_id": row.ID,
		"event":               typ,
	})
	if err := r.repo.Save(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to save dispatch event")
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish dispatch event")
	}
}
