package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reasons a call session stops
const (
	StopReasonDeadline    = "deadline"
	StopReasonCeiling     = "ceiling"
	StopReasonIdle        = "idle"
	StopReasonNoCampaigns = "no_campaigns"
	StopReasonCancelled   = "cancelled"
)

// DispatchSessionFlow runs bounded call dispatch sessions
type DispatchSessionFlow interface {
	RunCallSession(ctx context.Context, identity Identity, metadata *ClientMetadata) (*dto.CallSessionResponse, error)
}

// DispatchSessionFlowImpl implements the call session coordinator
type DispatchSessionFlowImpl struct {
	campaignRepo        repository.CampaignRepository
	campaignContactRepo repository.CampaignContactRepository
	sessionRepo         repository.DispatchSessionRepository
	reconciler          ReconciliationFlow
	dispatcher          CallDispatcher
	events              *eventRecorder
	cache               services.SessionCache
	pacers              PacerFactory
	cfg                 config.DispatchConfig
	clock               Clock
	logger              logrus.FieldLogger
}

// NewDispatchSessionFlow creates a new dispatch session flow instance
func NewDispatchSessionFlow(
	campaignRepo repository.CampaignRepository,
	campaignContactRepo repository.CampaignContactRepository,
	sessionRepo repository.DispatchSessionRepository,
	eventRepo repository.DispatchEventRepository,
	reconciler ReconciliationFlow,
	dispatcher CallDispatcher,
	deps FlowDeps,
	cfg config.DispatchConfig,
) DispatchSessionFlow {
	deps = deps.withDefaults()
	if dispatcher == nil {
		dispatcher = HandoffDispatcher{}
	}
	return &DispatchSessionFlowImpl{
		campaignRepo:        campaignRepo,
		campaignContactRepo: campaignContactRepo,
		sessionRepo:         sessionRepo,
		reconciler:          reconciler,
		dispatcher:          dispatcher,
		events:              newEventRecorder(eventRepo, deps.Publisher, deps.Logger),
		cache:               deps.Cache,
		pacers:              deps.Pacers,
		cfg:                 cfg,
		clock:               deps.Clock,
		logger:              deps.Logger,
	}
}

// campaignTally accumulates per-campaign counts during a session
type campaignTally struct {
	dispatched int
	invalid    int
	failed     int
}

// sessionRun is the mutable state of one session
type sessionRun struct {
	session    *models.DispatchSession
	campaigns  []*models.Campaign
	tallies    map[uint]*campaignTally
	deadline   time.Time
	ceiling    int
	pacer      Pacer
	waitCtx    context.Context
	stopReason string
	rounds     int
}

func (s *DispatchSessionFlowImpl) maxIdleRounds() int {
	if s.cfg.MaxIdleRounds > 0 {
		return s.cfg.MaxIdleRounds
	}
	return 1
}

// RunCallSession dispatches active call campaigns round-robin until the deadline, the shared ceiling,
// or the idle limit is reached. Reaching a limit is a normal close.
func (s *DispatchSessionFlowImpl) RunCallSession(ctx context.Context, identity Identity, metadata *ClientMetadata) (*dto.CallSessionResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	campaigns, err := s.campaignRepo.ListActive(ctx, identity.OwnerID, models.ChannelCall)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to list active call campaigns", err)
	}

	started := s.clock.now()
	session := &models.DispatchSession{
		UUID:               uuid.New(),
		OwnerID:            identity.OwnerID,
		Channel:            models.ChannelCall,
		SessionMS:          s.cfg.SessionDuration.Milliseconds(),
		ContactsPerSession: s.cfg.ContactsPerSession,
		GapMS:              s.cfg.SendGap.Milliseconds(),
		StartedAt:          started,
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, NewBusinessError("SESSION_CREATE_FAILED", "Failed to open dispatch session", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"owner_id":     identity.OwnerID,
		"session_id":   session.ID,
		"session_uuid": session.UUID.String(),
		"request_id":   metadata.requestID(),
	})

	reconciled := 0
	if len(campaigns) > 0 {
		rec, err := s.reconciler.ReconcileCampaigns(ctx, identity, campaigns, &session.ID)
		if err != nil {
			log.WithError(err).Warn("Reconciliation before session failed")
		} else {
			reconciled = rec.Promoted
		}
	}

	deadline := started.Add(s.cfg.SessionDuration)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	run := &sessionRun{
		session:   session,
		campaigns: campaigns,
		tallies:   make(map[uint]*campaignTally, len(campaigns)),
		deadline:  deadline,
		ceiling:   s.cfg.ContactsPerSession,
		pacer:     s.pacers(s.cfg.SendGap),
		waitCtx:   waitCtx,
	}
	for _, c := range campaigns {
		run.tallies[c.ID] = &campaignTally{}
	}

	if len(campaigns) == 0 {
		run.stopReason = StopReasonNoCampaigns
	} else {
		s.roundRobin(ctx, run, log)
	}

	return s.closeSession(ctx, identity, run, reconciled, log)
}

// shouldStop checks the hard bounds. It sets the stop reason when one is hit.
func (s *DispatchSessionFlowImpl) shouldStop(ctx context.Context, run *sessionRun) bool {
	switch {
	case ctx.Err() != nil:
		run.stopReason = StopReasonCancelled
	case !s.clock.now().Before(run.deadline):
		run.stopReason = StopReasonDeadline
	case run.session.Dispatched >= run.ceiling:
		run.stopReason = StopReasonCeiling
	default:
		return false
	}
	return true
}

func (s *DispatchSessionFlowImpl) roundRobin(ctx context.Context, run *sessionRun, log logrus.FieldLogger) {
	idle := 0
	for {
		if s.shouldStop(ctx, run) {
			return
		}
		run.rounds++
		progressed := false

		for _, campaign := range run.campaigns {
			if s.shouldStop(ctx, run) {
				return
			}
			progress, stop := s.visit(ctx, run, campaign, log)
			if progress {
				progressed = true
			}
			if stop {
				return
			}
		}

		if progressed {
			idle = 0
			continue
		}
		idle++
		if idle >= s.maxIdleRounds() {
			run.stopReason = StopReasonIdle
			return
		}
	}
}

// visit handles at most one pending row of a campaign. It reports whether the visit made progress
// and whether the session must stop.
func (s *DispatchSessionFlowImpl) visit(ctx context.Context, run *sessionRun, campaign *models.Campaign, log logrus.FieldLogger) (bool, bool) {
	rows, err := s.campaignContactRepo.OldestPending(ctx, campaign.ID, 1)
	if err != nil {
		log.WithError(err).WithField("campaign_id", campaign.ID).Warn("Failed to pull pending contact")
		return false, false
	}
	if len(rows) == 0 {
		return false, false
	}

	row := rows[0]
	sessionID := &run.session.ID
	tally := run.tallies[campaign.ID]
	channel := string(campaign.Channel)
	s.events.record(ctx, sessionID, row, models.DispatchEventSelected, "")

	var phone string
	var optedOut bool
	if row.Contact != nil {
		phone = row.Contact.Phone
		optedOut = row.Contact.OptedOut
	}

	verdict := ValidateContact(phone, optedOut, s.cfg.DefaultRegion)
	if !verdict.Valid {
		failed, err := s.campaignContactRepo.MarkInvalid(ctx, row.ID, verdict.Reason)
		if err != nil {
			log.WithError(err).WithField("campaign_contact_id", row.ID).Warn("Failed to mark contact invalid")
			return false, false
		}
		if !failed {
			dispatchContactsTotal.WithLabelValues(channel, outcomeSkipped).Inc()
			return false, false
		}
		run.session.Invalid++
		tally.invalid++
		dispatchContactsTotal.WithLabelValues(channel, outcomeInvalid).Inc()
		s.events.record(ctx, sessionID, row, models.DispatchEventInvalid, verdict.Reason)
		return true, false
	}

	claimed, err := s.campaignContactRepo.MarkSent(ctx, row.ID, s.clock.now())
	if err != nil {
		log.WithError(err).WithField("campaign_contact_id", row.ID).Warn("Failed to claim contact")
		return false, false
	}
	if !claimed {
		dispatchContactsTotal.WithLabelValues(channel, outcomeSkipped).Inc()
		return false, false
	}

	run.session.Dispatched++
	tally.dispatched++

	if err := s.dispatcher.Dispatch(ctx, campaign, row, verdict.Normalized); err != nil {
		detail := err.Error()
		if _, ferr := s.campaignContactRepo.MarkSendFailed(ctx, row.ID, detail); ferr != nil {
			log.WithError(ferr).WithField("campaign_contact_id", row.ID).Warn("Failed to mark contact failed")
		}
		run.session.Failed++
		tally.failed++
		dispatchContactsTotal.WithLabelValues(channel, outcomeFailed).Inc()
		s.events.record(ctx, sessionID, row, models.DispatchEventFailed, detail)
	} else {
		run.session.Sent++
		dispatchContactsTotal.WithLabelValues(channel, outcomeSent).Inc()
		s.events.record(ctx, sessionID, row, models.DispatchEventSent, "")
	}

	if err := run.pacer.Wait(run.waitCtx); err != nil {
		if ctx.Err() != nil {
			run.stopReason = StopReasonCancelled
		} else {
			run.stopReason = StopReasonDeadline
		}
		return true, true
	}
	return true, false
}

func (s *DispatchSessionFlowImpl) closeSession(ctx context.Context, identity Identity, run *sessionRun, reconciled int, log logrus.FieldLogger) (*dto.CallSessionResponse, error) {
	// Totals are persisted even when the caller went away
	closeCtx := context.WithoutCancel(ctx)

	ended := s.clock.now()
	session := run.session
	session.EndedAt = &ended
	session.DurationMS = ended.Sub(session.StartedAt).Milliseconds()

	pending, err := s.campaignContactRepo.CountPendingByCampaign(closeCtx, campaignIDsOf(run.campaigns))
	if err != nil {
		log.WithError(err).Warn("Failed to count remaining pending contacts")
		pending = make(map[uint]int64)
	}

	if err := s.sessionRepo.Close(closeCtx, session); err != nil {
		return nil, NewBusinessError("SESSION_CLOSE_FAILED", "Failed to close dispatch session", err)
	}

	diagnostics := dto.SessionDiagnostics{
		Campaigns:   make([]dto.CampaignDiagnostic, 0, len(run.campaigns)),
		PerCampaign: pending,
		Limits: dto.SessionLimits{
			SessionMS:          session.SessionMS,
			ContactsPerSession: session.ContactsPerSession,
			GapMS:              session.GapMS,
			MaxIdleRounds:      s.maxIdleRounds(),
		},
		StopReason: run.stopReason,
		Reconciled: reconciled,
		Rounds:     run.rounds,
	}
	for _, c := range run.campaigns {
		tally := run.tallies[c.ID]
		diagnostics.Campaigns = append(diagnostics.Campaigns, dto.CampaignDiagnostic{
			ID:         c.ID,
			Name:       c.Name,
			Dispatched: tally.dispatched,
			Invalid:    tally.invalid,
			Failed:     tally.failed,
			Pending:    pending[c.ID],
		})
	}

	resp := &dto.CallSessionResponse{
		Success:     true,
		Session:     toSessionSummary(session),
		Diagnostics: diagnostics,
	}

	if s.cache != nil {
		if err := s.cache.SaveLatestSession(closeCtx, identity.OwnerID, string(models.ChannelCall), resp.Session); err != nil {
			log.WithError(err).Warn("Failed to cache latest session")
		}
	}

	log.WithFields(logrus.Fields{
		"dispatched":  session.Dispatched,
		"sent":        session.Sent,
		"failed":      session.Failed,
		"invalid":     session.Invalid,
		"duration_ms": session.DurationMS,
		"stop_reason": run.stopReason,
		"rounds":      run.rounds,
	}).Info("Call session closed")

	return resp, nil
}

func toSessionSummary(session *models.DispatchSession) dto.CallSessionSummary {
	return dto.CallSessionSummary{
		ID:         session.ID,
		UUID:       session.UUID.String(),
		StartedAt:  session.StartedAt.UTC().Format(time.RFC3339Nano),
		EndedAt:    utils.FormatRFC3339Ptr(session.EndedAt),
		Dispatched: session.Dispatched,
		Max:        session.ContactsPerSession,
		DurationMS: session.DurationMS,
		Sent:       session.Sent,
		Failed:     session.Failed,
		Invalid:    session.Invalid,
	}
}
