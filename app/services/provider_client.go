// Package services provides external service integrations and technical concerns like providers, tokens and caches
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amirphl/Susanoo/config"
)

// ProviderCustomer is one dialable entry in a provider campaign
type ProviderCustomer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// ProviderSchedulePlan bounds when the provider may place calls
type ProviderSchedulePlan struct {
	EarliestAt string `json:"earliestAt"`
	LatestAt   string `json:"latestAt,omitempty"`
}

// ProviderCampaignRequest is the create-campaign body. Exactly one of AssistantID and WorkflowID is set.
type ProviderCampaignRequest struct {
	Name          string                `json:"name"`
	PhoneNumberID string                `json:"phoneNumberId,omitempty"`
	Customers     []ProviderCustomer    `json:"customers"`
	AssistantID   string                `json:"assistantId,omitempty"`
	WorkflowID    string                `json:"workflowId,omitempty"`
	SchedulePlan  *ProviderSchedulePlan `json:"schedulePlan,omitempty"`
}

// ProviderCampaign is the provider's representation of a created campaign
type ProviderCampaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ProviderError carries a non-2xx provider response
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider http status: %d", e.StatusCode)
	}
	return fmt.Sprintf("provider http status: %d: %s", e.StatusCode, e.Body)
}

// ProviderClient creates campaigns on the external calling platform
type ProviderClient interface {
	Name() string
	CreateCampaign(ctx context.Context, req ProviderCampaignRequest) (*ProviderCampaign, error)
}

type httpProviderClient struct {
	cfg    config.ProviderConfig
	client *http.Client
}

// NewProviderClient creates an HTTP provider client with the configured timeout
func NewProviderClient(cfg config.ProviderConfig) ProviderClient {
	return &httpProviderClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *httpProviderClient) Name() string {
	return c.cfg.Name
}

func (c *httpProviderClient) CreateCampaign(ctx context.Context, in ProviderCampaignRequest) (*ProviderCampaign, error) {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return nil, fmt.Errorf("provider base url is not configured")
	}
	if in.PhoneNumberID == "" {
		in.PhoneNumberID = c.cfg.PhoneNumberID
	}

	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider campaign: %w", err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/campaign"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		body := strings.TrimSpace(string(bodyBytes))
		if readErr != nil {
			body = fmt.Sprintf("unable to read response body: %v", readErr)
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: body}
	}

	var out ProviderCampaign
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("provider response is missing campaign id")
	}
	return &out, nil
}
