package handlers

import (
	"strconv"

	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// SessionHandlerInterface defines the contract for session report handlers
type SessionHandlerInterface interface {
	LatestSession(c fiber.Ctx) error
	ExportSessionEvents(c fiber.Ctx) error
}

type SessionHandler struct {
	baseHandler
	flow businessflow.SessionReportFlow
}

func NewSessionHandler(flow businessflow.SessionReportFlow, logger logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// LatestSession returns the most recent session summary of a channel
// @Summary Latest dispatch session
// @Tags Dispatch Sessions
// @Produce json
// @Security BearerAuth
// @Param channel query string false "call or whatsapp" default(call)
// @Success 200 {object} dto.APIResponse{data=dto.LatestSessionResponse} "Latest session"
// @Failure 400 {object} dto.APIResponse "Invalid channel"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "No session yet"
// @Router /api/v1/dispatch/sessions/latest [get]
func (h *SessionHandler) LatestSession(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/dispatch/sessions/latest")
	defer cancel()

	result, err := h.flow.LatestSession(ctx, identity, c.Query("channel"))
	if err != nil {
		return h.flowError(c, err, "Failed to load latest session", "LATEST_SESSION_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Latest session retrieved", result)
}

// ExportSessionEvents streams the audit trail of a session as an xlsx workbook
// @Summary Export session events
// @Tags Dispatch Sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {file} file "Workbook"
// @Failure 400 {object} dto.APIResponse "Invalid session id"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Router /api/v1/dispatch/sessions/{id}/events.xlsx [get]
func (h *SessionHandler) ExportSessionEvents(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	sessionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", "INVALID_SESSION_ID", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/dispatch/sessions/:id/events.xlsx")
	defer cancel()

	filename, content, err := h.flow.ExportSessionEvents(ctx, identity, uint(sessionID))
	if err != nil {
		return h.flowError(c, err, "Failed to export session events", "SESSION_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(content)
}
