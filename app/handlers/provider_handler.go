package handlers

import (
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// CallbackSecretHeader carries the shared secret of provider callbacks
const CallbackSecretHeader = "X-Provider-Secret"

// ProviderHandlerInterface defines the contract for provider handlers
type ProviderHandlerInterface interface {
	SubmitBatch(c fiber.Ctx) error
	DrainQueue(c fiber.Ctx) error
	Callback(c fiber.Ctx) error
}

type ProviderHandler struct {
	baseHandler
	submitFlow   businessflow.ProviderSubmitFlow
	drainFlow    businessflow.QueueDrainFlow
	callbackFlow businessflow.DeliveryCallbackFlow
	timeout      time.Duration
}

// NewProviderHandler creates a provider handler. timeout bounds one submission request and should cover every chunk.
func NewProviderHandler(
	submitFlow businessflow.ProviderSubmitFlow,
	drainFlow businessflow.QueueDrainFlow,
	callbackFlow businessflow.DeliveryCallbackFlow,
	timeout time.Duration,
	logger logrus.FieldLogger,
) *ProviderHandler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ProviderHandler{
		baseHandler:  newBaseHandler(logger),
		submitFlow:   submitFlow,
		drainFlow:    drainFlow,
		callbackFlow: callbackFlow,
		timeout:      timeout,
	}
}

// SubmitBatch submits the valid members of a batch to the calling provider in chunks
// @Summary Submit batch to provider
// @Description Exactly one of assistantId and workflowId may be set. Contacts are split into provider campaigns of at most 500.
// @Tags Provider
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ProviderSubmitRequest true "Submission"
// @Success 200 {object} dto.APIResponse{data=dto.ProviderSubmitResponse} "Submitted"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Batch not found"
// @Failure 502 {object} dto.APIResponse{error=dto.ErrorDetail{details=dto.ProviderSubmitResponse}} "Provider rejected a chunk"
// @Router /api/v1/provider/batches/submit [post]
func (h *ProviderHandler) SubmitBatch(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	var req dto.ProviderSubmitRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.OwnerID = identity.OwnerID

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/provider/batches/submit", h.timeout)
	defer cancel()

	result, err := h.submitFlow.SubmitBatch(ctx, identity, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to submit batch", "PROVIDER_SUBMIT_FAILED", partial(result))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Batch submitted to provider", result)
}

// DrainQueue submits the scheduling queue of a batch to the provider and deletes accepted rows
// @Summary Drain scheduling queue
// @Description Rows are deleted only after the provider accepted their chunk. A failure stops the drain with the rest of the queue intact. Undialable numbers are removed with their chunk and counted as skipped.
// @Tags Provider
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.QueueDrainRequest true "Drain"
// @Success 200 {object} dto.APIResponse{data=dto.QueueDrainResponse} "Drained"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Batch not found"
// @Failure 409 {object} dto.APIResponse "Drain already running"
// @Failure 502 {object} dto.APIResponse{error=dto.ErrorDetail{details=dto.QueueDrainResponse}} "Provider rejected a chunk"
// @Router /api/v1/provider/queue/drain [post]
func (h *ProviderHandler) DrainQueue(c fiber.Ctx) error {
	identity, ok := h.identity(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner identity is required", "IDENTITY_REQUIRED", nil)
	}

	var req dto.QueueDrainRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}
	req.OwnerID = identity.OwnerID

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/provider/queue/drain", h.timeout)
	defer cancel()

	result, err := h.drainFlow.Drain(ctx, identity, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to drain queue", "QUEUE_DRAIN_FAILED", partial(result))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Queue drained", result)
}

// Callback ingests a provider server message
// @Summary Provider callback
// @Description Authenticated by the shared secret header. End-of-call reports become terminal delivery records.
// @Tags Provider
// @Accept json
// @Produce json
// @Param X-Provider-Secret header string true "Shared secret"
// @Param request body dto.ProviderCallbackRequest true "Server message"
// @Success 200 {object} dto.APIResponse{data=dto.ProviderCallbackResponse} "Acknowledged"
// @Failure 400 {object} dto.APIResponse "Invalid payload"
// @Failure 401 {object} dto.APIResponse "Secret mismatch"
// @Router /api/v1/provider/callbacks [post]
func (h *ProviderHandler) Callback(c fiber.Ctx) error {
	var req dto.ProviderCallbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.Secret = c.Get(CallbackSecretHeader)
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/provider/callbacks")
	defer cancel()

	result, err := h.callbackFlow.HandleCallback(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to record callback", "CALLBACK_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Callback processed", result)
}

// partial keeps typed nil pointers out of the error details
func partial[T any](result *T) any {
	if result == nil {
		return nil
	}
	return result
}
