package dto

// SchedulePlan bounds when the provider may call. Times are RFC3339.
type SchedulePlan struct {
	EarliestAt string `json:"earliestAt" validate:"required"`
	LatestAt   string `json:"latestAt,omitempty"`
}

// ProviderSubmitRequest addresses a batch for provider submission.
// At most one of AssistantID and WorkflowID may be given; when both are empty the configured default applies.
type ProviderSubmitRequest struct {
	OwnerID      uint          `json:"-"`
	BatchID      uint          `json:"batch_id" validate:"required,gt=0"`
	Name         string        `json:"name,omitempty" validate:"omitempty,max=200"`
	AssistantID  string        `json:"assistantId,omitempty" validate:"omitempty,max=128"`
	WorkflowID   string        `json:"workflowId,omitempty" validate:"omitempty,max=128"`
	SchedulePlan *SchedulePlan `json:"schedulePlan,omitempty" validate:"omitempty"`
}

// ProviderCampaignRef is one created provider campaign
type ProviderCampaignRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Count  int    `json:"count"`
}

// ProviderSubmitTotals sums a direct submission
type ProviderSubmitTotals struct {
	Campaigns int `json:"campaigns"`
	Customers int `json:"customers"`
	Skipped   int `json:"skipped"`
}

// ProviderSubmitResponse represents the outcome of a direct batch submission
type ProviderSubmitResponse struct {
	Success   bool                  `json:"success"`
	Provider  string                `json:"provider"`
	Campaigns []ProviderCampaignRef `json:"campaigns"`
	Totals    ProviderSubmitTotals  `json:"totals"`
	Error     string                `json:"error,omitempty"`
}

// QueueDrainResponse represents the outcome of draining a batch's scheduling queue
type QueueDrainResponse struct {
	Success              bool                  `json:"success"`
	Campaigns            []ProviderCampaignRef `json:"campaigns"`
	TotalQueuedProcessed int                   `json:"totalQueuedProcessed"`
	Skipped              int                   `json:"skipped"`
	Error                string                `json:"error,omitempty"`
}

// ProviderCallbackCustomer identifies the callee in a provider report
type ProviderCallbackCustomer struct {
	Number string `json:"number"`
}

// ProviderCallbackCall is the call object of a provider report
type ProviderCallbackCall struct {
	ID         string                   `json:"id"`
	CampaignID string                   `json:"campaignId,omitempty"`
	Customer   ProviderCallbackCustomer `json:"customer"`
	Metadata   map[string]any           `json:"metadata,omitempty"`
}

// ProviderCallbackMessage is the message envelope of a provider report
type ProviderCallbackMessage struct {
	Type        string               `json:"type" validate:"required"`
	Status      string               `json:"status,omitempty"`
	EndedReason string               `json:"endedReason,omitempty"`
	Call        ProviderCallbackCall `json:"call"`
}

// ProviderCallbackRequest is a provider server message. The campaign and contact ids of our
// side travel in call.metadata as campaign_id and contact_id.
type ProviderCallbackRequest struct {
	Secret  string                  `json:"-"`
	Message ProviderCallbackMessage `json:"message" validate:"required"`
}

// ProviderCallbackResponse acknowledges a provider report
type ProviderCallbackResponse struct {
	Success  bool   `json:"success"`
	Recorded bool   `json:"recorded"`
	Terminal bool   `json:"terminal"`
	Reason   string `json:"reason,omitempty"`
}

// QueueDrainRequest selects the batch whose scheduling queue is drained
type QueueDrainRequest struct {
	OwnerID      uint          `json:"-"`
	BatchID      uint          `json:"batch_id" validate:"required,gt=0"`
	Name         string        `json:"name,omitempty" validate:"omitempty,max=200"`
	AssistantID  string        `json:"assistantId,omitempty" validate:"omitempty,max=128"`
	WorkflowID   string        `json:"workflowId,omitempty" validate:"omitempty,max=128"`
	SchedulePlan *SchedulePlan `json:"schedulePlan,omitempty" validate:"omitempty"`
}
