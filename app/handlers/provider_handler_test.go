package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProviderFlows struct {
	submitReq *dto.ProviderSubmitRequest
	submitErr error
	drainErr  error
	secret    string
}

func (f *fakeProviderFlows) SubmitBatch(_ context.Context, _ businessflow.Identity, req *dto.ProviderSubmitRequest, _ *businessflow.ClientMetadata) (*dto.ProviderSubmitResponse, error) {
	f.submitReq = req
	resp := &dto.ProviderSubmitResponse{
		Success:   f.submitErr == nil,
		Provider:  "fake",
		Campaigns: []dto.ProviderCampaignRef{{ID: "pc_1", Count: 500}},
	}
	return resp, f.submitErr
}

func (f *fakeProviderFlows) Drain(_ context.Context, _ businessflow.Identity, req *dto.QueueDrainRequest, _ *businessflow.ClientMetadata) (*dto.QueueDrainResponse, error) {
	if f.drainErr != nil {
		return nil, f.drainErr
	}
	return &dto.QueueDrainResponse{Success: true, TotalQueuedProcessed: 600}, nil
}

func (f *fakeProviderFlows) HandleCallback(_ context.Context, req *dto.ProviderCallbackRequest, _ *businessflow.ClientMetadata) (*dto.ProviderCallbackResponse, error) {
	f.secret = req.Secret
	if req.Secret != "s3cret" {
		return nil, businessflow.NewBusinessError("CALLBACK_UNAUTHORIZED", "Callback secret mismatch", businessflow.ErrCallbackUnauthorized)
	}
	return &dto.ProviderCallbackResponse{Success: true, Recorded: true, Terminal: true}, nil
}

func newProviderApp(flows *fakeProviderFlows) *fiber.App {
	logger, _ := test.NewNullLogger()
	h := NewProviderHandler(flows, flows, flows, time.Second, logger)
	app := fiber.New()
	app.Post("/provider/callbacks", h.Callback)
	app.Use(withOwner(7))
	app.Post("/provider/batches/submit", h.SubmitBatch)
	app.Post("/provider/queue/drain", h.DrainQueue)
	return app
}

func TestSubmitBatchHandler(t *testing.T) {
	t.Run("forwards the addressing fields", func(t *testing.T) {
		flows := &fakeProviderFlows{}
		status, out := doJSON(t, newProviderApp(flows), http.MethodPost, "/provider/batches/submit", map[string]any{
			"batch_id":     4,
			"workflowId":   "wf_1",
			"schedulePlan": map[string]string{"earliestAt": "2026-03-05T10:00:00Z"},
		})
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, out.Success)
		require.NotNil(t, flows.submitReq)
		assert.Equal(t, uint(4), flows.submitReq.BatchID)
		assert.Equal(t, "wf_1", flows.submitReq.WorkflowID)
		assert.Equal(t, uint(7), flows.submitReq.OwnerID)
		require.NotNil(t, flows.submitReq.SchedulePlan)
	})

	t.Run("batch id is required", func(t *testing.T) {
		status, out := doJSON(t, newProviderApp(&fakeProviderFlows{}), http.MethodPost, "/provider/batches/submit", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, out))
	})

	t.Run("addressing conflict is a 400", func(t *testing.T) {
		flows := &fakeProviderFlows{submitErr: businessflow.NewBusinessError("ADDRESSING_MODE_CONFLICT", "Exactly one of assistantId and workflowId may be set", businessflow.ErrAddressingModeConflict)}
		status, out := doJSON(t, newProviderApp(flows), http.MethodPost, "/provider/batches/submit", map[string]any{
			"batch_id": 4, "assistantId": "a", "workflowId": "w",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "ADDRESSING_MODE_CONFLICT", errorCode(t, out))
	})

	t.Run("partial failure returns the created campaigns", func(t *testing.T) {
		flows := &fakeProviderFlows{submitErr: businessflow.NewBusinessErrorf("PROVIDER_SUBMISSION_FAILED", "Provider rejected chunk %d of %d", businessflow.ErrProviderSubmissionFailed, 2, 2)}
		status, out := doJSON(t, newProviderApp(flows), http.MethodPost, "/provider/batches/submit", map[string]any{"batch_id": 4})
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "Provider rejected chunk 2 of 2", out.Message)
		detail := out.Error.(map[string]any)
		partial := detail["details"].(map[string]any)
		assert.Len(t, partial["campaigns"], 1)
	})
}

func TestDrainQueueHandler(t *testing.T) {
	t.Run("drains", func(t *testing.T) {
		status, out := doJSON(t, newProviderApp(&fakeProviderFlows{}), http.MethodPost, "/provider/queue/drain", map[string]any{"batch_id": 1})
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 600, out.Data.(map[string]any)["totalQueuedProcessed"])
	})

	t.Run("concurrent drain is a conflict", func(t *testing.T) {
		flows := &fakeProviderFlows{drainErr: businessflow.NewBusinessError("DRAIN_IN_PROGRESS", "A drain of this batch is already running", businessflow.ErrDrainInProgress)}
		status, out := doJSON(t, newProviderApp(flows), http.MethodPost, "/provider/queue/drain", map[string]any{"batch_id": 1})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "DRAIN_IN_PROGRESS", errorCode(t, out))
		assert.Nil(t, out.Error.(map[string]any)["details"])
	})
}

func TestCallbackHandler(t *testing.T) {
	post := func(t *testing.T, app *fiber.App, secret string, body any) *http.Response {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/provider/callbacks", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		if secret != "" {
			req.Header.Set(CallbackSecretHeader, secret)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}
	report := map[string]any{"message": map[string]any{"type": "end-of-call-report", "call": map[string]any{"id": "call_1"}}}

	t.Run("secret travels in the header and needs no bearer token", func(t *testing.T) {
		flows := &fakeProviderFlows{}
		resp := post(t, newProviderApp(flows), "s3cret", report)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "s3cret", flows.secret)
	})

	t.Run("wrong secret is 401", func(t *testing.T) {
		resp := post(t, newProviderApp(&fakeProviderFlows{}), "nope", report)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("message type is required", func(t *testing.T) {
		resp := post(t, newProviderApp(&fakeProviderFlows{}), "s3cret", map[string]any{"message": map[string]any{}})
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, fmt.Sprintf("%s", body))
	})
}
