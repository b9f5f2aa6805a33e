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
	"github.com/amirphl/Susanoo/app/middleware"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/models"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatchFlows struct {
	seedReq    *dto.SeedCampaignRequest
	seedErr    error
	sessionErr error
	channel    string
}

func (f *fakeDispatchFlows) SeedCampaign(_ context.Context, _ businessflow.Identity, req *dto.SeedCampaignRequest, _ *businessflow.ClientMetadata) (*dto.SeedCampaignResponse, error) {
	f.seedReq = req
	if f.seedErr != nil {
		return nil, f.seedErr
	}
	return &dto.SeedCampaignResponse{Success: true, CampaignID: req.CampaignID, SeededQueued: 3, Complete: true}, nil
}

func (f *fakeDispatchFlows) RunCallSession(_ context.Context, identity businessflow.Identity, _ *businessflow.ClientMetadata) (*dto.CallSessionResponse, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &dto.CallSessionResponse{
		Success:     true,
		Session:     dto.CallSessionSummary{ID: 1, Dispatched: 2, Max: 10},
		Diagnostics: dto.SessionDiagnostics{StopReason: businessflow.StopReasonIdle},
	}, nil
}

func (f *fakeDispatchFlows) RunWebhookPass(_ context.Context, _ businessflow.Identity, channel string, _ *businessflow.ClientMetadata) (*dto.WebhookPassResponse, error) {
	f.channel = channel
	return &dto.WebhookPassResponse{Success: true, Channel: channel, Processed: 4}, nil
}

func (f *fakeDispatchFlows) Reconcile(context.Context, businessflow.Identity, *dto.ReconcileRequest, *businessflow.ClientMetadata) (*dto.ReconcileResponse, error) {
	return &dto.ReconcileResponse{Success: true, Promoted: 1}, nil
}

func (f *fakeDispatchFlows) ReconcileCampaigns(context.Context, businessflow.Identity, []*models.Campaign, *uint) (*dto.ReconcileResponse, error) {
	return &dto.ReconcileResponse{Success: true}, nil
}

// withOwner stands in for the auth middleware
func withOwner(ownerID uint) fiber.Handler {
	return func(c fiber.Ctx) error {
		if ownerID != 0 {
			c.Locals(middleware.OwnerIDKey, ownerID)
		}
		return c.Next()
	}
}

func newDispatchApp(flows *fakeDispatchFlows, ownerID uint) *fiber.App {
	logger, _ := test.NewNullLogger()
	h := NewDispatchHandler(flows, flows, flows, flows, time.Second, logger)
	app := fiber.New()
	app.Use(withOwner(ownerID))
	app.Post("/dispatch/campaigns/:id/seed", h.SeedCampaign)
	app.Post("/dispatch/call-sessions", h.RunCallSession)
	app.Post("/dispatch/whatsapp-pass", h.RunWhatsAppPass)
	app.Post("/dispatch/reconcile", h.Reconcile)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, dto.APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorCode(t *testing.T, out dto.APIResponse) string {
	t.Helper()
	detail, ok := out.Error.(map[string]any)
	require.True(t, ok, "error detail missing")
	code, _ := detail["code"].(string)
	return code
}

func TestSeedCampaignHandler(t *testing.T) {
	t.Run("seeds without a body", func(t *testing.T) {
		flows := &fakeDispatchFlows{}
		status, out := doJSON(t, newDispatchApp(flows, 7), http.MethodPost, "/dispatch/campaigns/12/seed", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, out.Success)
		require.NotNil(t, flows.seedReq)
		assert.Equal(t, uint(12), flows.seedReq.CampaignID)
		assert.Equal(t, uint(7), flows.seedReq.OwnerID)
		assert.Nil(t, flows.seedReq.WebhookURL)
	})

	t.Run("passes the webhook url", func(t *testing.T) {
		flows := &fakeDispatchFlows{}
		status, _ := doJSON(t, newDispatchApp(flows, 7), http.MethodPost, "/dispatch/campaigns/12/seed",
			map[string]string{"webhook_url": "https://hooks.example.com/wa"})
		assert.Equal(t, http.StatusOK, status)
		require.NotNil(t, flows.seedReq.WebhookURL)
		assert.Equal(t, "https://hooks.example.com/wa", *flows.seedReq.WebhookURL)
	})

	t.Run("rejects a malformed webhook url", func(t *testing.T) {
		flows := &fakeDispatchFlows{}
		status, out := doJSON(t, newDispatchApp(flows, 7), http.MethodPost, "/dispatch/campaigns/12/seed",
			map[string]string{"webhook_url": "not a url"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, out))
		assert.Nil(t, flows.seedReq)
	})

	t.Run("invalid campaign id", func(t *testing.T) {
		status, out := doJSON(t, newDispatchApp(&fakeDispatchFlows{}, 7), http.MethodPost, "/dispatch/campaigns/abc/seed", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_CAMPAIGN_ID", errorCode(t, out))
	})

	t.Run("missing identity", func(t *testing.T) {
		status, out := doJSON(t, newDispatchApp(&fakeDispatchFlows{}, 0), http.MethodPost, "/dispatch/campaigns/1/seed", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "IDENTITY_REQUIRED", errorCode(t, out))
	})

	t.Run("unknown campaign maps to 404", func(t *testing.T) {
		flows := &fakeDispatchFlows{seedErr: businessflow.NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", businessflow.ErrCampaignNotFound)}
		status, out := doJSON(t, newDispatchApp(flows, 7), http.MethodPost, "/dispatch/campaigns/1/seed", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "CAMPAIGN_NOT_FOUND", errorCode(t, out))
		assert.Equal(t, "Campaign not found", out.Message)
	})
}

func TestDispatchRunHandlers(t *testing.T) {
	t.Run("call session", func(t *testing.T) {
		status, out := doJSON(t, newDispatchApp(&fakeDispatchFlows{}, 7), http.MethodPost, "/dispatch/call-sessions", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, out.Message, businessflow.StopReasonIdle)
		data := out.Data.(map[string]any)
		session := data["session"].(map[string]any)
		assert.EqualValues(t, 2, session["dispatched"])
	})

	t.Run("unexpected failures hide the cause", func(t *testing.T) {
		flows := &fakeDispatchFlows{sessionErr: fmt.Errorf("connection reset")}
		status, out := doJSON(t, newDispatchApp(flows, 7), http.MethodPost, "/dispatch/call-sessions", nil)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "CALL_SESSION_FAILED", errorCode(t, out))
		assert.NotContains(t, out.Message, "connection reset")
	})

	t.Run("whatsapp pass uses the whatsapp channel", func(t *testing.T) {
		flows := &fakeDispatchFlows{}
		status, _ := doJSON(t, newDispatchApp(flows, 7), http.MethodPost, "/dispatch/whatsapp-pass", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "whatsapp", flows.channel)
	})

	t.Run("reconcile validates campaign ids", func(t *testing.T) {
		status, _ := doJSON(t, newDispatchApp(&fakeDispatchFlows{}, 7), http.MethodPost, "/dispatch/reconcile",
			map[string]any{"campaign_ids": []int{0}})
		assert.Equal(t, http.StatusBadRequest, status)

		status, out := doJSON(t, newDispatchApp(&fakeDispatchFlows{}, 7), http.MethodPost, "/dispatch/reconcile",
			map[string]any{"campaign_ids": []int{3}})
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, out.Data.(map[string]any)["promoted"])
	})
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{businessflow.ErrIdentityRequired, http.StatusUnauthorized},
		{businessflow.ErrSessionNotFound, http.StatusNotFound},
		{businessflow.ErrAddressingModeConflict, http.StatusBadRequest},
		{businessflow.ErrInvalidSchedulePlan, http.StatusBadRequest},
		{businessflow.ErrDrainInProgress, http.StatusConflict},
		{fmt.Errorf("chunk 2/3: %w", businessflow.ErrProviderSubmissionFailed), http.StatusBadGateway},
		{businessflow.ErrProviderNotConfigured, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err), tc.err.Error())
	}
}
