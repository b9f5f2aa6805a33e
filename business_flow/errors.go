// Package businessflow contains the core dispatch use cases and their error taxonomy
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Identity errors
	ErrIdentityRequired = errors.New("identity is required")

	// Campaign-related errors
	ErrCampaignNotFound      = errors.New("campaign not found")
	ErrCampaignIDRequired    = errors.New("campaign id is required")
	ErrInvalidChannel        = errors.New("invalid channel")
	ErrCampaignNotActive     = errors.New("campaign is not active")
	ErrNoCampaignsToDispatch = errors.New("no active campaigns to dispatch")

	// Batch-related errors
	ErrBatchNotFound   = errors.New("batch not found")
	ErrBatchIDRequired = errors.New("batch id is required")
	ErrBatchEmpty      = errors.New("batch has no contacts")

	// Session-related errors
	ErrSessionNotFound = errors.New("dispatch session not found")

	// Provider-related errors
	ErrAddressingModeConflict   = errors.New("exactly one of assistantId and workflowId may be set")
	ErrAddressingModeMissing    = errors.New("one of assistantId and workflowId is required")
	ErrProviderNotConfigured    = errors.New("provider is not configured")
	ErrProviderSubmissionFailed = errors.New("provider submission failed")
	ErrInvalidSchedulePlan      = errors.New("schedule plan is invalid")
	ErrNoCustomers              = errors.New("no customers to submit")
	ErrDrainInProgress          = errors.New("a drain of this batch is already in progress")

	// Callback errors
	ErrCallbackUnauthorized = errors.New("callback secret mismatch")
	ErrCallbackInvalid      = errors.New("callback payload is invalid")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsIdentityRequired(err error) bool {
	return errors.Is(err, ErrIdentityRequired)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignIDRequired(err error) bool {
	return errors.Is(err, ErrCampaignIDRequired)
}

func IsInvalidChannel(err error) bool {
	return errors.Is(err, ErrInvalidChannel)
}

func IsCampaignNotActive(err error) bool {
	return errors.Is(err, ErrCampaignNotActive)
}

func IsBatchNotFound(err error) bool {
	return errors.Is(err, ErrBatchNotFound)
}

func IsBatchIDRequired(err error) bool {
	return errors.Is(err, ErrBatchIDRequired)
}

func IsBatchEmpty(err error) bool {
	return errors.Is(err, ErrBatchEmpty)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsAddressingModeConflict(err error) bool {
	return errors.Is(err, ErrAddressingModeConflict)
}

func IsAddressingModeMissing(err error) bool {
	return errors.Is(err, ErrAddressingModeMissing)
}

func IsProviderNotConfigured(err error) bool {
	return errors.Is(err, ErrProviderNotConfigured)
}

func IsProviderSubmissionFailed(err error) bool {
	return errors.Is(err, ErrProviderSubmissionFailed)
}

func IsInvalidSchedulePlan(err error) bool {
	return errors.Is(err, ErrInvalidSchedulePlan)
}

func IsNoCustomers(err error) bool {
	return errors.Is(err, ErrNoCustomers)
}

func IsDrainInProgress(err error) bool {
	return errors.Is(err, ErrDrainInProgress)
}

func IsCallbackUnauthorized(err error) bool {
	return errors.Is(err, ErrCallbackUnauthorized)
}

func IsCallbackInvalid(err error) bool {
	return errors.Is(err, ErrCallbackInvalid)
}
