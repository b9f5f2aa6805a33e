// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/middleware"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
	logger    logrus.FieldLogger
}

func newBaseHandler(logger logrus.FieldLogger) baseHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return baseHandler{validator: validator.New(), logger: logger}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and writes the 400 response itself. It returns ok=false when a response was written.
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	err := h.validator.Struct(req)
	if err == nil {
		return true, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}
	details := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, getValidationErrorMessage(fe))
	}
	return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", details)
}

// identity reads the owner stored by the auth middleware
func (h *baseHandler) identity(c fiber.Ctx) (businessflow.Identity, bool) {
	ownerID, ok := c.Locals(middleware.OwnerIDKey).(uint)
	if !ok || ownerID == 0 {
		return businessflow.Identity{}, false
	}
	subject, _ := c.Locals(middleware.SubjectKey).(string)
	return businessflow.Identity{OwnerID: ownerID, Subject: subject}, true
}

func (h *baseHandler) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get("X-Request-ID"))
	return metadata
}

func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, utils.DefaultRequestTimeout)
}

func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	return ctx, cancel
}

// businessErrorCode extracts the code of a business error, falling back to the given one
func businessErrorCode(err error, fallback string) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Code != "" {
		return be.Code
	}
	return fallback
}

// businessErrorMessage extracts the message of a business error, falling back to the given one
func businessErrorMessage(err error, fallback string) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

// statusForError maps the flow error taxonomy onto HTTP status codes
func statusForError(err error) int {
	switch {
	case businessflow.IsIdentityRequired(err), businessflow.IsCallbackUnauthorized(err):
		return fiber.StatusUnauthorized
	case businessflow.IsCampaignNotFound(err), businessflow.IsBatchNotFound(err), businessflow.IsSessionNotFound(err):
		return fiber.StatusNotFound
	case businessflow.IsCampaignIDRequired(err), businessflow.IsBatchIDRequired(err), businessflow.IsInvalidChannel(err),
		businessflow.IsAddressingModeConflict(err), businessflow.IsAddressingModeMissing(err),
		businessflow.IsInvalidSchedulePlan(err), businessflow.IsNoCustomers(err), businessflow.IsBatchEmpty(err),
		businessflow.IsCallbackInvalid(err):
		return fiber.StatusBadRequest
	case businessflow.IsCampaignNotActive(err), businessflow.IsDrainInProgress(err):
		return fiber.StatusConflict
	case businessflow.IsProviderNotConfigured(err):
		return fiber.StatusServiceUnavailable
	case businessflow.IsProviderSubmissionFailed(err):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// flowError writes the error response of a failed flow call. data rides along for partial results.
func (h *baseHandler) flowError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string, data any) error {
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Path()).Error(fallbackMessage)
	}
	message := fallbackMessage
	if status < fiber.StatusInternalServerError || status == fiber.StatusBadGateway {
		message = businessErrorMessage(err, fallbackMessage)
	}
	return h.ErrorResponse(c, status, message, businessErrorCode(err, fallbackCode), data)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "url":
		return err.Field() + " must be an absolute URL"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
