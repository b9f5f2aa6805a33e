package businessflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBatch(t *testing.T) {
	ctx := context.Background()

	newSubmit := func(env *flowEnv, client *fakeProvider) ProviderSubmitFlow {
		chunker := newTestChunker(client, config.ProviderConfig{AssistantID: "asst_1", MaxPerCampaign: 500}, time.Now())
		return NewProviderSubmitFlow(env.batchRepo, chunker, env.deps, testDispatchConfig())
	}

	t.Run("skips undialable members and defaults the name", func(t *testing.T) {
		env := newFlowEnv(t)
		var contacts []*models.Contact
		for range 3 {
			c, err := env.fixtures.CreateContact(testOwnerID, env.fixtures.NextPhone(), false)
			require.NoError(t, err)
			contacts = append(contacts, c)
		}
		bad, err := env.fixtures.CreateContact(testOwnerID, "123", false)
		require.NoError(t, err)
		opted, err := env.fixtures.CreateContact(testOwnerID, env.fixtures.NextPhone(), true)
		require.NoError(t, err)
		batch, err := env.fixtures.CreateBatch(testOwnerID, append(contacts, bad, opted))
		require.NoError(t, err)

		client := &fakeProvider{}
		resp, err := newSubmit(env, client).SubmitBatch(ctx, testIdentity(), &dto.ProviderSubmitRequest{BatchID: batch.ID}, nil)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "fake", resp.Provider)
		assert.Equal(t, 2, resp.Totals.Skipped)
		assert.Equal(t, 3, resp.Totals.Customers)
		assert.Equal(t, 1, resp.Totals.Campaigns)

		require.Len(t, client.requests, 1)
		assert.True(t, strings.HasPrefix(client.requests[0].Name, batch.Name+" "))
		assert.Len(t, client.requests[0].Customers, 3)
	})

	t.Run("partial failure keeps created campaigns", func(t *testing.T) {
		env := newFlowEnv(t)
		batch, _, err := env.fixtures.CreateValidBatch(testOwnerID, 600)
		require.NoError(t, err)

		resp, err := newSubmit(env, &fakeProvider{failOn: 2}).SubmitBatch(ctx, testIdentity(), &dto.ProviderSubmitRequest{BatchID: batch.ID, Name: "Spring"}, nil)
		require.Error(t, err)
		assert.True(t, IsProviderSubmissionFailed(err))
		require.NotNil(t, resp)
		assert.False(t, resp.Success)
		require.Len(t, resp.Campaigns, 1)
		assert.Equal(t, 500, resp.Totals.Customers)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("batch of another owner is not found", func(t *testing.T) {
		env := newFlowEnv(t)
		batch, _, err := env.fixtures.CreateValidBatch(testOwnerID+1, 2)
		require.NoError(t, err)

		_, err = newSubmit(env, &fakeProvider{}).SubmitBatch(ctx, testIdentity(), &dto.ProviderSubmitRequest{BatchID: batch.ID}, nil)
		assert.True(t, IsBatchNotFound(err))
	})

	t.Run("batch without dispatchable contacts", func(t *testing.T) {
		env := newFlowEnv(t)
		bad, err := env.fixtures.CreateContact(testOwnerID, "abc", false)
		require.NoError(t, err)
		batch, err := env.fixtures.CreateBatch(testOwnerID, []*models.Contact{bad})
		require.NoError(t, err)

		client := &fakeProvider{}
		_, err = newSubmit(env, client).SubmitBatch(ctx, testIdentity(), &dto.ProviderSubmitRequest{BatchID: batch.ID}, nil)
		assert.True(t, IsBatchEmpty(err))
		assert.Empty(t, client.requests)
	})

	t.Run("identity and batch id are required", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := newSubmit(env, &fakeProvider{})

		_, err := flow.SubmitBatch(ctx, Identity{}, &dto.ProviderSubmitRequest{BatchID: 1}, nil)
		assert.True(t, IsIdentityRequired(err))

		_, err = flow.SubmitBatch(ctx, testIdentity(), &dto.ProviderSubmitRequest{}, nil)
		assert.True(t, IsBatchIDRequired(err))
	})
}
