package utils

import (
	"time"
)

// Context keys populated by handlers for downstream logging
type contextKey string

const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Dispatch constants
const (
	// ProviderMaxPerCampaign is the hard per-submission capacity of the calling provider
	ProviderMaxPerCampaign = 500

	// DefaultWebhookPullSize bounds how many pending contacts one webhook pass pulls per campaign
	DefaultWebhookPullSize = 5

	// DefaultSeederChunkSize is the batch member page size used while seeding
	DefaultSeederChunkSize = 500

	// DefaultRequestTimeout applies to request contexts created by handlers
	DefaultRequestTimeout = 30 * time.Second
)
