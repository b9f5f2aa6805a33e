package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Sources of a latest session summary
const (
	SessionSourceCache    = "cache"
	SessionSourceDatabase = "database"
)

// SessionReportFlow reads back finished dispatch sessions
type SessionReportFlow interface {
	LatestSession(ctx context.Context, identity Identity, channel string) (*dto.LatestSessionResponse, error)
	ExportSessionEvents(ctx context.Context, identity Identity, sessionID uint) (string, []byte, error)
}

// SessionReportFlowImpl implements session reporting
type SessionReportFlowImpl struct {
	sessionRepo repository.DispatchSessionRepository
	eventRepo   repository.DispatchEventRepository
	cache       services.SessionCache
	logger      logrus.FieldLogger
}

// NewSessionReportFlow creates a new session report flow instance
func NewSessionReportFlow(sessionRepo repository.DispatchSessionRepository, eventRepo repository.DispatchEventRepository, deps FlowDeps) SessionReportFlow {
	deps = deps.withDefaults()
	return &SessionReportFlowImpl{
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
		cache:       deps.Cache,
		logger:      deps.Logger,
	}
}

// LatestSession prefers the cached summary and falls back to the newest stored session
func (f *SessionReportFlowImpl) LatestSession(ctx context.Context, identity Identity, channel string) (*dto.LatestSessionResponse, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	ch := models.Channel(strings.ToLower(strings.TrimSpace(channel)))
	if ch == "" {
		ch = models.ChannelCall
	}
	if !ch.Valid() {
		return nil, NewBusinessErrorf("INVALID_CHANNEL", "Unknown channel %q", ErrInvalidChannel, channel)
	}

	if f.cache != nil {
		var cached dto.CallSessionSummary
		hit, err := f.cache.LoadLatestSession(ctx, identity.OwnerID, string(ch), &cached)
		if err != nil {
			f.logger.WithError(err).WithField("owner_id", identity.OwnerID).Warn("Latest session cache read failed")
		}
		if hit {
			return &dto.LatestSessionResponse{Success: true, Source: SessionSourceCache, Session: &cached}, nil
		}
	}

	session, err := f.sessionRepo.LatestByOwnerAndChannel(ctx, identity.OwnerID, ch)
	if err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to lookup latest session", err)
	}
	if session == nil {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "No session found", ErrSessionNotFound)
	}
	summary := toSessionSummary(session)
	return &dto.LatestSessionResponse{Success: true, Source: SessionSourceDatabase, Session: &summary}, nil
}

// ExportSessionEvents renders the audit trail of one session as an xlsx workbook
func (f *SessionReportFlowImpl) ExportSessionEvents(ctx context.Context, identity Identity, sessionID uint) (string, []byte, error) {
	if err := identity.Validate(); err != nil {
		return "", nil, err
	}

	session, err := f.sessionRepo.ByOwnerAndID(ctx, identity.OwnerID, sessionID)
	if err != nil {
		return "", nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to lookup session", err)
	}
	if session == nil {
		return "", nil, NewBusinessError("SESSION_NOT_FOUND", "Session not found", ErrSessionNotFound)
	}

	events, err := f.eventRepo.ListBySession(ctx, identity.OwnerID, session.ID)
	if err != nil {
		return "", nil, NewBusinessError("SESSION_EVENTS_LOOKUP_FAILED", "Failed to list session events", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "events"
	xl.SetSheetName(xl.GetSheetName(0), sheet)
	header := []string{"id", "campaign_id", "contact_id", "campaign_contact_id", "type", "detail", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, e := range events {
		detail := ""
		if e.Detail != nil {
			detail = *e.Detail
		}
		record := []string{
			strconv.FormatUint(uint64(e.ID), 10),
			strconv.FormatUint(uint64(e.CampaignID), 10),
			strconv.FormatUint(uint64(e.ContactID), 10),
			strconv.FormatUint(uint64(e.CampaignContactID), 10),
			string(e.Type),
			detail,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cell, &record)
	}

	summarySheet := "session"
	if _, err := xl.NewSheet(summarySheet); err == nil {
		summary := toSessionSummary(session)
		ended := ""
		if summary.EndedAt != nil {
			ended = *summary.EndedAt
		}
		rows := [][]string{
			{"uuid", summary.UUID},
			{"channel", string(session.Channel)},
			{"started_at", summary.StartedAt},
			{"ended_at", ended},
			{"dispatched", strconv.Itoa(summary.Dispatched)},
			{"sent", strconv.Itoa(summary.Sent)},
			{"failed", strconv.Itoa(summary.Failed)},
			{"invalid", strconv.Itoa(summary.Invalid)},
			{"max", strconv.Itoa(summary.Max)},
			{"duration_ms", strconv.FormatInt(summary.DurationMS, 10)},
		}
		for i, r := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			_ = xl.SetSheetRow(summarySheet, cell, &r)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return fmt.Sprintf("dispatch_session_%d_events.xlsx", session.ID), buf.Bytes(), nil
}
