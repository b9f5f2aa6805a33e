package businessflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []services.WebhookPayload
}

func (r *webhookRecorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var p services.WebhookPayload
		_ = json.NewDecoder(req.Body).Decode(&p)
		r.mu.Lock()
		r.payloads = append(r.payloads, p)
		r.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestRunWebhookPass(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers valid contacts and records row states", func(t *testing.T) {
		env := newFlowEnv(t)
		rec := &webhookRecorder{}
		srv := httptest.NewServer(rec.handler(http.StatusAccepted))
		defer srv.Close()

		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelWhatsApp, models.CampaignStatusActive,
			"interval_seconds: 2\nmessage: Hello {{name}}")
		require.NoError(t, err)
		require.NoError(t, env.campaignRepo.Activate(ctx, campaign.ID, utils.ToPtr(srv.URL+"/hook")))

		good1, err := env.fixtures.CreateContact(testOwnerID, env.fixtures.NextPhone(), false)
		require.NoError(t, err)
		noPhone, err := env.fixtures.CreateContact(testOwnerID, "", false)
		require.NoError(t, err)
		bad, err := env.fixtures.CreateContact(testOwnerID, "nope", false)
		require.NoError(t, err)
		good2, err := env.fixtures.CreateContact(testOwnerID, env.fixtures.NextPhone(), false)
		require.NoError(t, err)
		rows, err := env.fixtures.QueueContacts(campaign, []*models.Contact{good1, noPhone, bad, good2}, models.CampaignContactStatusPending)
		require.NoError(t, err)

		flow := NewChannelDispatchFlow(env.campaignRepo, env.campaignContactRepo, env.eventRepo, services.NewWebhookClient(time.Second),
			env.deps, testDispatchConfig(), config.WebhookConfig{PullSize: 5, DefaultRatePerSecond: 1})

		resp, err := flow.RunWebhookPass(ctx, testIdentity(), "whatsapp", nil)
		require.NoError(t, err)
		assert.Equal(t, "whatsapp", resp.Channel)
		assert.Equal(t, 4, resp.Processed)
		require.Len(t, resp.Diagnostics, 1)
		diag := resp.Diagnostics[0]
		assert.Equal(t, 2, diag.Sent)
		assert.Equal(t, 1, diag.Failed)
		assert.Equal(t, 1, diag.Skipped)
		assert.EqualValues(t, 2000, diag.IntervalMS)

		// One wait between the two posts
		require.Len(t, env.pacers, 1)
		assert.Equal(t, 1, env.pacers[0].waits)
		assert.Equal(t, 2*time.Second, env.pacers[0].gap)

		require.Len(t, rec.payloads, 2)
		assert.Equal(t, "whatsapp", rec.payloads[0].Channel)
		assert.Equal(t, campaign.ID, rec.payloads[0].CampaignID)
		assert.Equal(t, good1.Phone, rec.payloads[0].To)
		assert.Equal(t, "Hello "+good1.Name, rec.payloads[0].Prompt)
		assert.Equal(t, good1.ID, rec.payloads[0].Contact.ID)

		want := []struct {
			status models.CampaignContactStatus
			reason string
		}{
			{models.CampaignContactStatusSent, ""},
			{models.CampaignContactStatusFailed, models.ReasonNoPhone},
			{models.CampaignContactStatusFailed, models.ReasonInvalidPhone},
			{models.CampaignContactStatusSent, ""},
		}
		for i, w := range want {
			row, err := env.campaignContactRepo.ByID(ctx, rows[i].ID)
			require.NoError(t, err)
			assert.Equal(t, w.status, row.Status)
			if w.reason != "" {
				require.NotNil(t, row.LastError)
				assert.Equal(t, w.reason, *row.LastError)
			}
		}
	})

	t.Run("non-2xx marks the row failed with the status code", func(t *testing.T) {
		env := newFlowEnv(t)
		rec := &webhookRecorder{}
		srv := httptest.NewServer(rec.handler(http.StatusBadGateway))
		defer srv.Close()

		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelWhatsApp, models.CampaignStatusActive, "")
		require.NoError(t, err)
		contact, err := env.fixtures.CreateContact(testOwnerID, env.fixtures.NextPhone(), false)
		require.NoError(t, err)
		rows, err := env.fixtures.QueueContacts(campaign, []*models.Contact{contact}, models.CampaignContactStatusPending)
		require.NoError(t, err)

		flow := NewChannelDispatchFlow(env.campaignRepo, env.campaignContactRepo, env.eventRepo, services.NewWebhookClient(time.Second),
			env.deps, testDispatchConfig(), config.WebhookConfig{DefaultURL: srv.URL})

		resp, err := flow.RunWebhookPass(ctx, testIdentity(), "whatsapp", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Diagnostics[0].Failed)

		row, err := env.campaignContactRepo.ByID(ctx, rows[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignContactStatusFailed, row.Status)
		assert.Equal(t, "HTTP 502", *row.LastError)
		assert.Equal(t, 1, row.Attempts)
	})

	t.Run("missing destination marks invalid webhook", func(t *testing.T) {
		env := newFlowEnv(t)
		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelWhatsApp, models.CampaignStatusActive, "")
		require.NoError(t, err)
		require.NoError(t, env.campaignRepo.Activate(ctx, campaign.ID, utils.ToPtr("ftp://files.example.com")))
		contact, err := env.fixtures.CreateContact(testOwnerID, env.fixtures.NextPhone(), false)
		require.NoError(t, err)
		rows, err := env.fixtures.QueueContacts(campaign, []*models.Contact{contact}, models.CampaignContactStatusPending)
		require.NoError(t, err)

		flow := NewChannelDispatchFlow(env.campaignRepo, env.campaignContactRepo, env.eventRepo, services.NewWebhookClient(time.Second),
			env.deps, testDispatchConfig(), config.WebhookConfig{})

		_, err = flow.RunWebhookPass(ctx, testIdentity(), "whatsapp", nil)
		require.NoError(t, err)

		row, err := env.campaignContactRepo.ByID(ctx, rows[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReasonInvalidWebhook, *row.LastError)
	})

	t.Run("pull size bounds one pass", func(t *testing.T) {
		env := newFlowEnv(t)
		rec := &webhookRecorder{}
		srv := httptest.NewServer(rec.handler(http.StatusOK))
		defer srv.Close()

		batch, contacts, err := env.fixtures.CreateValidBatch(testOwnerID, 8)
		require.NoError(t, err)
		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelWhatsApp, models.CampaignStatusActive, "", batch.ID)
		require.NoError(t, err)
		_, err = env.fixtures.QueueContacts(campaign, contacts, models.CampaignContactStatusPending)
		require.NoError(t, err)

		flow := NewChannelDispatchFlow(env.campaignRepo, env.campaignContactRepo, env.eventRepo, services.NewWebhookClient(time.Second),
			env.deps, testDispatchConfig(), config.WebhookConfig{DefaultURL: srv.URL})

		resp, err := flow.RunWebhookPass(ctx, testIdentity(), "whatsapp", nil)
		require.NoError(t, err)
		assert.Equal(t, utils.DefaultWebhookPullSize, resp.Diagnostics[0].Sent)
		assert.Len(t, rec.payloads, utils.DefaultWebhookPullSize)
	})

	t.Run("call is not a webhook channel", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := NewChannelDispatchFlow(env.campaignRepo, env.campaignContactRepo, env.eventRepo, services.NewWebhookClient(time.Second),
			env.deps, testDispatchConfig(), config.WebhookConfig{})
		_, err := flow.RunWebhookPass(ctx, testIdentity(), "call", nil)
		assert.True(t, IsInvalidChannel(err))
	})
}
