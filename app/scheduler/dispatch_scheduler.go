// Package scheduler runs dispatch work periodically for configured owners
package scheduler

import (
	"context"
	"fmt"
	"time"

	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DispatchScheduler invokes call sessions, webhook passes and reconciliation on cron specs.
// Overlapping runs of one job are skipped, never queued.
type DispatchScheduler struct {
	sessionFlow   businessflow.DispatchSessionFlow
	channelFlow   businessflow.ChannelDispatchFlow
	reconcileFlow businessflow.ReconciliationFlow
	cfg           config.SchedulerConfig
	jobTimeout    time.Duration
	logger        logrus.FieldLogger
}

func NewDispatchScheduler(
	sessionFlow businessflow.DispatchSessionFlow,
	channelFlow businessflow.ChannelDispatchFlow,
	reconcileFlow businessflow.ReconciliationFlow,
	cfg config.SchedulerConfig,
	jobTimeout time.Duration,
	logger logrus.FieldLogger,
) *DispatchScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &DispatchScheduler{
		sessionFlow:   sessionFlow,
		channelFlow:   channelFlow,
		reconcileFlow: reconcileFlow,
		cfg:           cfg,
		jobTimeout:    jobTimeout,
		logger:        logger.WithField("component", "dispatch_scheduler"),
	}
}

// Start registers the jobs and starts the cron runner. The returned func stops it and waits for running jobs.
func (s *DispatchScheduler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)

	cl := cronLogger{logger: s.logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))

	jobs := map[string]struct {
		spec string
		run  func(context.Context)
	}{
		"call_session": {s.cfg.CallSessionSpec, s.RunCallSessions},
		"webhook_pass": {s.cfg.WebhookPassSpec, s.RunWebhookPasses},
		"reconcile":    {s.cfg.ReconcileSpec, s.RunReconcile},
	}
	for name, job := range jobs {
		if job.spec == "" {
			continue
		}
		run := job.run
		if _, err := c.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid %s schedule %q: %w", name, job.spec, err)
		}
	}

	c.Start()
	s.logger.WithField("owners", len(s.cfg.OwnerIDs)).Info("Dispatch scheduler started")

	return func() {
		cancel()
		<-c.Stop().Done()
		s.logger.Info("Dispatch scheduler stopped")
	}, nil
}

// RunCallSessions runs one call session per configured owner, sequentially
func (s *DispatchScheduler) RunCallSessions(ctx context.Context) {
	for _, ownerID := range s.cfg.OwnerIDs {
		if ctx.Err() != nil {
			return
		}
		jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
		resp, err := s.sessionFlow.RunCallSession(jobCtx, businessflow.Identity{OwnerID: ownerID, Subject: "scheduler"}, nil)
		cancel()
		log := s.logger.WithFields(logrus.Fields{"job": "call_session", "owner_id": ownerID})
		if err != nil {
			log.WithError(err).Error("Scheduled call session failed")
			continue
		}
		log.WithFields(logrus.Fields{
			"dispatched":  resp.Session.Dispatched,
			"stop_reason": resp.Diagnostics.StopReason,
		}).Info("Scheduled call session finished")
	}
}

// RunWebhookPasses runs one pass per owner and configured webhook channel
func (s *DispatchScheduler) RunWebhookPasses(ctx context.Context) {
	for _, ownerID := range s.cfg.OwnerIDs {
		for _, channel := range s.cfg.WebhookChannels {
			if ctx.Err() != nil {
				return
			}
			jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
			resp, err := s.channelFlow.RunWebhookPass(jobCtx, businessflow.Identity{OwnerID: ownerID, Subject: "scheduler"}, channel, nil)
			cancel()
			log := s.logger.WithFields(logrus.Fields{"job": "webhook_pass", "owner_id": ownerID, "channel": channel})
			if err != nil {
				log.WithError(err).Error("Scheduled webhook pass failed")
				continue
			}
			log.WithField("processed", resp.Processed).Info("Scheduled webhook pass finished")
		}
	}
}

func (s *DispatchScheduler) RunReconcile(ctx context.Context) {
	for _, ownerID := range s.cfg.OwnerIDs {
		if ctx.Err() != nil {
			return
		}
		jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
		resp, err := s.reconcileFlow.Reconcile(jobCtx, businessflow.Identity{OwnerID: ownerID, Subject: "scheduler"}, nil, nil)
		cancel()
		log := s.logger.WithFields(logrus.Fields{"job": "reconcile", "owner_id": ownerID})
		if err != nil {
			log.WithError(err).Error("Scheduled reconciliation failed")
			continue
		}
		log.WithField("promoted", resp.Promoted).Info("Scheduled reconciliation finished")
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(keysAndValues []any) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
