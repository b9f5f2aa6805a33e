package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyCampaignContacts fails the failOn-th non-empty insert once
type flakyCampaignContacts struct {
	repository.CampaignContactRepository
	failOn  int
	inserts int
}

func (f *flakyCampaignContacts) InsertIgnoreDuplicates(ctx context.Context, rows []*models.CampaignContact) (int64, error) {
	if len(rows) > 0 {
		f.inserts++
		if f.inserts == f.failOn {
			return 0, errors.New("connection reset")
		}
	}
	return f.CampaignContactRepository.InsertIgnoreDuplicates(ctx, rows)
}

func TestSeedCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("queues valid members and records invalid ones", func(t *testing.T) {
		env := newFlowEnv(t)
		valid, contacts, err := env.fixtures.CreateValidBatch(testOwnerID, 3)
		require.NoError(t, err)

		bad, err := env.fixtures.CreateContact(testOwnerID, "not-a-phone", false)
		require.NoError(t, err)
		optedOut, err := env.fixtures.CreateContact(testOwnerID, env.fixtures.NextPhone(), true)
		require.NoError(t, err)
		// The first contact appears in both batches
		mixed, err := env.fixtures.CreateBatch(testOwnerID, []*models.Contact{contacts[0], bad, optedOut})
		require.NoError(t, err)

		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelCall, models.CampaignStatusDraft, "", valid.ID, mixed.ID)
		require.NoError(t, err)

		flow := NewSeedFlow(env.campaignRepo, env.batchRepo, env.campaignContactRepo, env.deps, testDispatchConfig())
		resp, err := flow.SeedCampaign(ctx, testIdentity(), &dto.SeedCampaignRequest{
			CampaignID: campaign.ID,
			WebhookURL: utils.ToPtr("https://hooks.example.com/in"),
		}, nil)
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.True(t, resp.Complete)
		assert.Equal(t, 3, resp.SeededQueued)
		assert.Equal(t, 2, resp.SeededInvalid)
		assert.Equal(t, 1, resp.SkippedDuplicates)
		assert.Len(t, resp.Chunks, 2)

		stored, err := env.campaignRepo.ByID(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusActive, stored.Status)
		require.NotNil(t, stored.WebhookURL)
		assert.Equal(t, "https://hooks.example.com/in", *stored.WebhookURL)

		failed := models.CampaignContactStatusFailed
		rows, err := env.campaignContactRepo.ByFilter(ctx, models.CampaignContactFilter{CampaignID: &campaign.ID, Status: &failed}, "contact_id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.NotNil(t, rows[0].LastError)
		assert.Equal(t, models.ReasonInvalidPhone, *rows[0].LastError)
		require.NotNil(t, rows[1].LastError)
		assert.Equal(t, models.ReasonOptedOut, *rows[1].LastError)
		assert.Zero(t, rows[0].Attempts)
	})

	t.Run("re-seeding is idempotent", func(t *testing.T) {
		env := newFlowEnv(t)
		batch, _, err := env.fixtures.CreateValidBatch(testOwnerID, 7)
		require.NoError(t, err)
		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelCall, models.CampaignStatusDraft, "", batch.ID)
		require.NoError(t, err)

		cfg := testDispatchConfig()
		cfg.SeederChunkSize = 3
		flow := NewSeedFlow(env.campaignRepo, env.batchRepo, env.campaignContactRepo, env.deps, cfg)

		first, err := flow.SeedCampaign(ctx, testIdentity(), &dto.SeedCampaignRequest{CampaignID: campaign.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, 7, first.SeededQueued)
		assert.Len(t, first.Chunks, 3)

		second, err := flow.SeedCampaign(ctx, testIdentity(), &dto.SeedCampaignRequest{CampaignID: campaign.ID}, nil)
		require.NoError(t, err)
		assert.Zero(t, second.SeededQueued)
		assert.Zero(t, second.SeededInvalid)
		assert.Equal(t, 7, second.SkippedDuplicates)

		total, err := env.campaignContactRepo.Count(ctx, models.CampaignContactFilter{CampaignID: &campaign.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 7, total)
	})

	t.Run("rejects missing identity before any write", func(t *testing.T) {
		env := newFlowEnv(t)
		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelCall, models.CampaignStatusDraft, "")
		require.NoError(t, err)

		flow := NewSeedFlow(env.campaignRepo, env.batchRepo, env.campaignContactRepo, env.deps, testDispatchConfig())
		_, err = flow.SeedCampaign(ctx, Identity{}, &dto.SeedCampaignRequest{CampaignID: campaign.ID}, nil)
		require.Error(t, err)
		assert.True(t, IsIdentityRequired(err))

		stored, err := env.campaignRepo.ByID(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusDraft, stored.Status)
	})

	t.Run("other owners' campaigns are not found", func(t *testing.T) {
		env := newFlowEnv(t)
		campaign, err := env.fixtures.CreateCampaign(testOwnerID+1, models.ChannelCall, models.CampaignStatusDraft, "")
		require.NoError(t, err)

		flow := NewSeedFlow(env.campaignRepo, env.batchRepo, env.campaignContactRepo, env.deps, testDispatchConfig())
		_, err = flow.SeedCampaign(ctx, testIdentity(), &dto.SeedCampaignRequest{CampaignID: campaign.ID}, nil)
		assert.True(t, IsCampaignNotFound(err))
	})

	t.Run("a failed chunk leaves the seed incomplete and a re-run finishes it", func(t *testing.T) {
		env := newFlowEnv(t)
		batch, _, err := env.fixtures.CreateValidBatch(testOwnerID, 5)
		require.NoError(t, err)
		campaign, err := env.fixtures.CreateCampaign(testOwnerID, models.ChannelCall, models.CampaignStatusDraft, "", batch.ID)
		require.NoError(t, err)

		cfg := testDispatchConfig()
		cfg.SeederChunkSize = 2
		flaky := &flakyCampaignContacts{CampaignContactRepository: env.campaignContactRepo, failOn: 2}
		req := &dto.SeedCampaignRequest{CampaignID: campaign.ID}

		resp, err := NewSeedFlow(env.campaignRepo, env.batchRepo, flaky, env.deps, cfg).SeedCampaign(ctx, testIdentity(), req, nil)
		require.NoError(t, err)
		assert.False(t, resp.Complete)
		require.Len(t, resp.Chunks, 3)
		assert.Empty(t, resp.Chunks[0].Error)
		assert.Contains(t, resp.Chunks[1].Error, "connection reset")
		assert.Equal(t, 2, resp.Chunks[1].Offset)
		assert.Empty(t, resp.Chunks[2].Error)
		assert.Equal(t, 3, resp.SeededQueued)

		again, err := NewSeedFlow(env.campaignRepo, env.batchRepo, flaky, env.deps, cfg).SeedCampaign(ctx, testIdentity(), req, nil)
		require.NoError(t, err)
		assert.True(t, again.Complete)
		assert.Equal(t, 2, again.SeededQueued)
		assert.Equal(t, 3, again.SkippedDuplicates)

		total, err := env.campaignContactRepo.Count(ctx, models.CampaignContactFilter{CampaignID: &campaign.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
	})
}
