package businessflow

import (
	"context"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
)

// CallDispatcher hands one claimed contact to the calling channel
type CallDispatcher interface {
	Dispatch(ctx context.Context, campaign *models.Campaign, row *models.CampaignContact, phone string) error
}

// HandoffDispatcher leaves the claimed row for the dialer that consumes sent rows
type HandoffDispatcher struct{}

func (HandoffDispatcher) Dispatch(context.Context, *models.Campaign, *models.CampaignContact, string) error {
	return nil
}

// ProviderCallDispatcher places each call as a single-customer provider campaign
type ProviderCallDispatcher struct {
	chunker ProviderChunker
}

func NewProviderCallDispatcher(chunker ProviderChunker) *ProviderCallDispatcher {
	return &ProviderCallDispatcher{chunker: chunker}
}

func (d *ProviderCallDispatcher) Dispatch(ctx context.Context, campaign *models.Campaign, row *models.CampaignContact, phone string) error {
	customer := services.ProviderCustomer{Number: phone}
	if row.Contact != nil {
		customer.Name = row.Contact.Name
		customer.Email = row.Contact.Email
	}
	_, err := d.chunker.SubmitChunks(ctx, campaign.Name, []services.ProviderCustomer{customer}, ChunkOptions{MaxPerCampaign: 1})
	return err
}
