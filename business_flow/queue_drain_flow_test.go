package businessflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reports []string
}

func (r *recordingReporter) Report(_ context.Context, err error, errorType string, _ map[string]any) {
	r.reports = append(r.reports, errorType+": "+err.Error())
}

func (r *recordingReporter) Breadcrumb(string, map[string]any) {}

func TestQueueDrain(t *testing.T) {
	ctx := context.Background()
	providerCfg := config.ProviderConfig{AssistantID: "asst_1", MaxPerCampaign: 500}

	setup := func(t *testing.T, n int) (*flowEnv, *models.Batch) {
		env := newFlowEnv(t)
		batch, contacts, err := env.fixtures.CreateValidBatch(testOwnerID, n)
		require.NoError(t, err)
		require.NoError(t, env.fixtures.EnqueueForProvider(testOwnerID, batch, contacts))
		return env, batch
	}

	newDrain := func(env *flowEnv, client services.ProviderClient) QueueDrainFlow {
		chunker := NewProviderChunker(client, providerCfg, env.deps)
		return NewQueueDrainFlow(env.batchRepo, env.queueRepo, env.logRepo, chunker, env.deps, testDispatchConfig(), providerCfg, time.Minute)
	}

	t.Run("drains the queue in provider-sized chunks", func(t *testing.T) {
		env, batch := setup(t, 600)
		client := &fakeProvider{}

		resp, err := newDrain(env, client).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID, Name: "Drain"}, nil)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 600, resp.TotalQueuedProcessed)
		require.Len(t, resp.Campaigns, 2)
		assert.Equal(t, 500, resp.Campaigns[0].Count)
		assert.Equal(t, 100, resp.Campaigns[1].Count)

		remaining, err := env.queueRepo.Count(ctx, models.SchedulingQueueFilter{BatchID: &batch.ID})
		require.NoError(t, err)
		assert.Zero(t, remaining)

		submitted := models.SchedulingLogStatusSubmitted
		logs, err := env.logRepo.ByFilter(ctx, models.SchedulingLogFilter{BatchID: &batch.ID, Status: &submitted}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "pc_1", *logs[0].ProviderCampaignID)
		assert.Equal(t, 500, logs[0].Count)
	})

	t.Run("failure keeps the rows and reports", func(t *testing.T) {
		env, batch := setup(t, 700)
		reporter := &recordingReporter{}
		env.deps.Reporter = reporter
		client := &fakeProvider{failOn: 2}

		resp, err := newDrain(env, client).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID}, nil)
		require.Error(t, err)
		assert.True(t, IsProviderSubmissionFailed(err))
		require.NotNil(t, resp)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
		require.Len(t, resp.Campaigns, 1)
		assert.Equal(t, 500, resp.TotalQueuedProcessed)

		// Only the accepted chunk left the queue
		remaining, err := env.queueRepo.Count(ctx, models.SchedulingQueueFilter{BatchID: &batch.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 200, remaining)

		failed := models.SchedulingLogStatusFailed
		logs, err := env.logRepo.ByFilter(ctx, models.SchedulingLogFilter{BatchID: &batch.ID, Status: &failed}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		require.NotNil(t, logs[0].Error)
		assert.Contains(t, *logs[0].Error, "boom")
		assert.Equal(t, 200, logs[0].Count)

		require.Len(t, reporter.reports, 1)
		assert.Contains(t, reporter.reports[0], "provider_drain")

		// A retry picks up exactly the remaining rows
		retry, err := newDrain(env, &fakeProvider{}).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, 200, retry.TotalQueuedProcessed)
	})

	t.Run("numbers are validated and normalized before submission", func(t *testing.T) {
		env := newFlowEnv(t)
		batch, contacts, err := env.fixtures.CreateValidBatch(testOwnerID, 3)
		require.NoError(t, err)
		require.NoError(t, env.fixtures.EnqueueForProvider(testOwnerID, batch, contacts))
		setNumber := func(contactID uint, number string) {
			payload := fmt.Sprintf(`{"number":%q}`, number)
			require.NoError(t, env.db.DB.Model(&models.SchedulingQueueRow{}).
				Where("contact_id = ?", contactID).Update("payload", []byte(payload)).Error)
		}
		setNumber(contacts[0].ID, "abc")
		setNumber(contacts[1].ID, "(415) 555-2671")

		client := &fakeProvider{}
		resp, err := newDrain(env, client).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, resp.TotalQueuedProcessed)
		assert.Equal(t, 1, resp.Skipped)

		require.Len(t, client.requests, 1)
		numbers := make([]string, 0, 2)
		for _, c := range client.requests[0].Customers {
			numbers = append(numbers, c.Number)
		}
		assert.Equal(t, []string{"+14155552671", contacts[2].Phone}, numbers)

		remaining, err := env.queueRepo.Count(ctx, models.SchedulingQueueFilter{BatchID: &batch.ID})
		require.NoError(t, err)
		assert.Zero(t, remaining)

		skipped := models.SchedulingLogStatusSkipped
		logs, err := env.logRepo.ByFilter(ctx, models.SchedulingLogFilter{BatchID: &batch.ID, Status: &skipped}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, 1, logs[0].Count)
		require.NotNil(t, logs[0].Error)
		assert.Contains(t, *logs[0].Error, "invalid phone")
	})

	t.Run("a chunk of only undialable rows is cleared without a submission", func(t *testing.T) {
		env := newFlowEnv(t)
		bad, err := env.fixtures.CreateContact(testOwnerID, "123", false)
		require.NoError(t, err)
		batch, err := env.fixtures.CreateBatch(testOwnerID, []*models.Contact{bad})
		require.NoError(t, err)
		require.NoError(t, env.fixtures.EnqueueForProvider(testOwnerID, batch, []*models.Contact{bad}))

		client := &fakeProvider{}
		resp, err := newDrain(env, client).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID}, nil)
		require.NoError(t, err)
		assert.Empty(t, client.requests)
		assert.Empty(t, resp.Campaigns)
		assert.Equal(t, 1, resp.TotalQueuedProcessed)
		assert.Equal(t, 1, resp.Skipped)
	})

	t.Run("addressing errors touch nothing", func(t *testing.T) {
		env, batch := setup(t, 3)
		drain := NewQueueDrainFlow(env.batchRepo, env.queueRepo, env.logRepo,
			NewProviderChunker(&fakeProvider{}, config.ProviderConfig{}, env.deps), env.deps, testDispatchConfig(), config.ProviderConfig{}, time.Minute)

		_, err := drain.Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID}, nil)
		assert.True(t, IsAddressingModeMissing(err))

		logs, err := env.logRepo.Count(ctx, models.SchedulingLogFilter{BatchID: &batch.ID})
		require.NoError(t, err)
		assert.Zero(t, logs)
	})

	t.Run("unknown batch", func(t *testing.T) {
		env, _ := setup(t, 1)
		_, err := newDrain(env, &fakeProvider{}).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: 9999}, nil)
		assert.True(t, IsBatchNotFound(err))
	})

	t.Run("concurrent drain of the same batch is refused", func(t *testing.T) {
		env, batch := setup(t, 2)
		mr := miniredis.RunT(t)
		rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rc.Close()
		cache := services.NewRedisSessionCache(rc, "test:", time.Minute)
		env.deps.Cache = cache

		release, ok, err := cache.AcquireLock(ctx, fmt.Sprintf("drain:%d:%d", testOwnerID, batch.ID), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = newDrain(env, &fakeProvider{}).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID}, nil)
		assert.True(t, IsDrainInProgress(err))

		release()
		resp, err := newDrain(env, &fakeProvider{}).Drain(ctx, testIdentity(), &dto.QueueDrainRequest{BatchID: batch.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.TotalQueuedProcessed)
	})
}
