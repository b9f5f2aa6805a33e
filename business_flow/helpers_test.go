package businessflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/repository"
	testingutil "github.com/amirphl/Susanoo/testing"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const testOwnerID uint = 7

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakePacer moves the fake clock forward instead of sleeping
type fakePacer struct {
	clock *fakeClock
	gap   time.Duration
	waits int
}

func (p *fakePacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.waits++
	p.clock.Advance(p.gap)
	return nil
}

type flowEnv struct {
	db       *testingutil.TestDB
	fixtures *testingutil.TestFixtures
	clock    *fakeClock
	pacers   []*fakePacer
	deps     FlowDeps

	batchRepo           repository.BatchRepository
	campaignRepo        repository.CampaignRepository
	campaignContactRepo repository.CampaignContactRepository
	queueRepo           repository.SchedulingQueueRepository
	logRepo             repository.SchedulingLogRepository
	sessionRepo         repository.DispatchSessionRepository
	eventRepo           repository.DispatchEventRepository
	deliveryRepo        repository.DeliveryRecordRepository
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()

	db, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.TeardownTestDB() })

	logger, _ := test.NewNullLogger()
	env := &flowEnv{
		db:                  db,
		fixtures:            testingutil.NewTestFixtures(db),
		clock:               newFakeClock(),
		batchRepo:           repository.NewBatchRepository(db.DB),
		campaignRepo:        repository.NewCampaignRepository(db.DB),
		campaignContactRepo: repository.NewCampaignContactRepository(db.DB),
		queueRepo:           repository.NewSchedulingQueueRepository(db.DB),
		logRepo:             repository.NewSchedulingLogRepository(db.DB),
		sessionRepo:         repository.NewDispatchSessionRepository(db.DB),
		eventRepo:           repository.NewDispatchEventRepository(db.DB),
		deliveryRepo:        repository.NewDeliveryRecordRepository(db.DB),
	}
	env.deps = FlowDeps{
		Logger: logger,
		Clock:  env.clock.Now,
		Pacers: func(gap time.Duration) Pacer {
			p := &fakePacer{clock: env.clock, gap: gap}
			env.pacers = append(env.pacers, p)
			return p
		},
	}
	return env
}

func testDispatchConfig() config.DispatchConfig {
	return config.DispatchConfig{
		SessionDuration:    time.Minute,
		ContactsPerSession: 10,
		SendGap:            0,
		MaxIdleRounds:      1,
		DefaultRegion:      "US",
		SeederChunkSize:    500,
		ReconcilePageSize:  500,
	}
}

func testIdentity() Identity {
	return Identity{OwnerID: testOwnerID}
}
