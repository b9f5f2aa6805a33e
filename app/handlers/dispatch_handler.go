package handlers

import (
	"strconv"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/models"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// DispatchHandlerInterface defines the contract for dispatch handlers
type DispatchHandlerInterface interface {
	SeedCampaign(c fiber.Ctx) error
	RunCallSession(c fiber.Ctx) error
	RunWhatsAppPass(c fiber.Ctx) error
	Reconcile(c fiber.Ctx) error
}

// DispatchHandler serves the seeding and dispatching endpoints
type DispatchHandler struct {
	baseHandler
	seedFlow      businessflow.SeedFlow
	sessionFlow   businessflow.DispatchSessionFlow
	channelFlow   businessflow.ChannelDispatchFlow
	reconcileFlow businessflow.ReconciliationFlow

	// sessionTimeout bounds the request context of a call session. It must outlive the session itself.
	sessionTimeout time.Duration
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(
	seedFlow businessflow.SeedFlow,
	sessionFlow businessflow.DispatchSessionFlow,
	channelFlow businessflow.ChannelDispatchFlow,
	reconcileFlow businessflow.ReconciliationFlow,
	sessionDuration time.Duration,
	logger logrus.FieldLogger,
) *DispatchHandler {
	return &DispatchHandler{
		baseHandler:    newBaseHandler(logger),
		seedFlow:       seedFlow,
		sessionFlow:    sessionFlow,
		channelFlow:    channelFlow,
		reconcileFlow:  reconcileFlow,
		sessionTimeout: sessionDuration + 30*time.Second,
	}
}

// SeedCampaign queues the contacts of a campaign's batches
// @Summary Seed campaign
// @Description Pages the members of every batch linked to the campaign, validates them and queues each contact once. Re-seeding never duplicates rows.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Param request body dto.SeedCampaignRequest false "Optional webhook URL"
// @Success 200 {object} dto.APIResponse{data=dto.SeedCampaignResponse} "Campaign seeded"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/dispatch/campaigns/{id}/seed [post]
func (h *DispatchHandler) SeedCampaign(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	campaignID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || campaignID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign id", "INVALID_CAMPAIGN_ID", nil)
	}

	var req dto.SeedCampaignRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.OwnerID = identity.OwnerID
	req.CampaignID = uint(campaignID)

	ctx, cancel := h.createRequestContext(c, "/api/v1/dispatch/campaigns/:id/seed")
	defer cancel()

	result, err := h.seedFlow.SeedCampaign(ctx, identity, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to seed campaign", "SEED_FAILED", nil)
	}

	message := "Campaign seeded successfully"
	if !result.Complete {
		message = "Campaign partially seeded; retry to finish"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, result)
}

// RunCallSession runs one bounded call dispatch session across the owner's active call campaigns
// @Summary Run call dispatch session
// @Description Reconciles sent rows, then dispatches pending contacts round-robin until the time or volume ceiling is hit.
// @Tags Dispatch
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CallSessionResponse} "Session finished"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/dispatch/call-sessions [post]
func (h *DispatchHandler) RunCallSession(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/dispatch/call-sessions", h.sessionTimeout)
	defer cancel()

	result, err := h.sessionFlow.RunCallSession(ctx, identity, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to run call session", "CALL_SESSION_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Call session finished: "+result.Diagnostics.StopReason, result)
}

// RunWhatsAppPass delivers one bounded pass of pending contacts through the WhatsApp webhook
// @Summary Run WhatsApp dispatch pass
// @Tags Dispatch
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.WebhookPassResponse} "Pass finished"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/dispatch/whatsapp-pass [post]
func (h *DispatchHandler) RunWhatsAppPass(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/dispatch/whatsapp-pass", 2*time.Minute)
	defer cancel()

	result, err := h.channelFlow.RunWebhookPass(ctx, identity, string(models.ChannelWhatsApp), h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to run WhatsApp pass", "WHATSAPP_PASS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "WhatsApp pass finished", result)
}

// Reconcile promotes sent rows with a terminal delivery record to done
// @Summary Reconcile sent contacts
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ReconcileRequest false "Campaign ids; empty means all active campaigns of every channel"
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse} "Reconciled"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/dispatch/reconcile [post]
func (h *DispatchHandler) Reconcile(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	var req dto.ReconcileRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.OwnerID = identity.OwnerID

	ctx, cancel := h.createRequestContext(c, "/api/v1/dispatch/reconcile")
	defer cancel()

	result, err := h.reconcileFlow.Reconcile(ctx, identity, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to reconcile", "RECONCILE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Reconciliation finished", result)
}
