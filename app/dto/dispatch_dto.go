package dto

// SeedCampaignRequest represents the optional body of a seed call
type SeedCampaignRequest struct {
	OwnerID    uint    `json:"-"`
	CampaignID uint    `json:"-"`
	WebhookURL *string `json:"webhook_url,omitempty" validate:"omitempty,url,max=1024"`
}

// SeedChunkResult reports one page of batch members processed by the seeder
type SeedChunkResult struct {
	BatchID uint   `json:"batch_id"`
	Offset  int    `json:"offset"`
	Size    int    `json:"size"`
	Queued  int    `json:"queued"`
	Invalid int    `json:"invalid"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// SeedCampaignResponse represents the seeding totals. Complete is false when a chunk failed.
type SeedCampaignResponse struct {
	Success           bool              `json:"success"`
	CampaignID        uint              `json:"campaign_id"`
	SeededQueued      int               `json:"seeded_queued"`
	SeededInvalid     int               `json:"seeded_invalid"`
	SkippedDuplicates int               `json:"skipped_duplicates"`
	Complete          bool              `json:"complete"`
	Chunks            []SeedChunkResult `json:"chunks"`
}

// CallSessionSummary is the session section of a call session response
type CallSessionSummary struct {
	ID         uint    `json:"id"`
	UUID       string  `json:"uuid"`
	StartedAt  string  `json:"started_at"`
	EndedAt    *string `json:"ended_at"`
	Dispatched int     `json:"dispatched"`
	Max        int     `json:"max"`
	DurationMS int64   `json:"duration_ms"`
	Sent       int     `json:"sent"`
	Failed     int     `json:"failed"`
	Invalid    int     `json:"invalid"`
}

// CampaignDiagnostic describes one campaign visited by a session
type CampaignDiagnostic struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Dispatched int    `json:"dispatched"`
	Invalid    int    `json:"invalid"`
	Failed     int    `json:"failed"`
	Pending    int64  `json:"pending"`
}

// SessionLimits echoes the effective bounds of a session
type SessionLimits struct {
	SessionMS          int64 `json:"session_ms"`
	ContactsPerSession int   `json:"contacts_per_session"`
	GapMS              int64 `json:"gap_ms"`
	MaxIdleRounds      int   `json:"max_idle_rounds"`
}

// SessionDiagnostics explains how a session ended and what remains
type SessionDiagnostics struct {
	Campaigns   []CampaignDiagnostic `json:"campaigns"`
	PerCampaign map[uint]int64       `json:"per_campaign"`
	Limits      SessionLimits        `json:"limits"`
	StopReason  string               `json:"stop_reason"`
	Reconciled  int                  `json:"reconciled"`
	Rounds      int                  `json:"rounds"`
}

// CallSessionResponse represents the outcome of one call dispatch session
type CallSessionResponse struct {
	Success     bool               `json:"success"`
	Session     CallSessionSummary `json:"session"`
	Diagnostics SessionDiagnostics `json:"diagnostics"`
}

// WebhookCampaignDiagnostic holds per-campaign counts of a webhook pass
type WebhookCampaignDiagnostic struct {
	CampaignID uint   `json:"campaign_id"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	IntervalMS int64  `json:"interval_ms"`
	Error      string `json:"error,omitempty"`
}

// WebhookPassResponse represents the outcome of one webhook channel pass
type WebhookPassResponse struct {
	Success     bool                        `json:"success"`
	Channel     string                      `json:"channel"`
	Processed   int                         `json:"processed"`
	Diagnostics []WebhookCampaignDiagnostic `json:"diagnostics"`
}

// ReconcileRequest selects campaigns to reconcile. Empty means every active call campaign.
type ReconcileRequest struct {
	OwnerID     uint   `json:"-"`
	CampaignIDs []uint `json:"campaign_ids,omitempty" validate:"omitempty,max=1000,dive,gt=0"`
}

// ReconcileResponse represents how many sent rows were promoted to done
type ReconcileResponse struct {
	Success     bool         `json:"success"`
	Promoted    int          `json:"promoted"`
	PerCampaign map[uint]int `json:"per_campaign"`
}

// LatestSessionResponse wraps the most recent session of a channel
type LatestSessionResponse struct {
	Success bool                `json:"success"`
	Source  string              `json:"source"`
	Session *CallSessionSummary `json:"session"`
}
