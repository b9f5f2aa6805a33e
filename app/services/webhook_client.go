package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookContact is the contact snapshot embedded in a webhook payload
type WebhookContact struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// WebhookPayload is POSTed once per contact on webhook channels
type WebhookPayload struct {
	Channel    string         `json:"channel"`
	CampaignID uint           `json:"campaign_id"`
	ContactID  uint           `json:"contact_id"`
	To         string         `json:"to"`
	Prompt     string         `json:"prompt"`
	Contact    WebhookContact `json:"contact"`
}

// WebhookClient delivers payloads to campaign webhooks
type WebhookClient interface {
	// Post returns the response status code. A transport failure returns an error and code 0.
	Post(ctx context.Context, url string, payload WebhookPayload) (int, error)
}

type httpWebhookClient struct {
	client *http.Client
}

// NewWebhookClient creates a webhook client bounded by timeout
func NewWebhookClient(timeout time.Duration) WebhookClient {
	return &httpWebhookClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *httpWebhookClient) Post(ctx context.Context, url string, payload WebhookPayload) (int, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return resp.StatusCode, nil
}
