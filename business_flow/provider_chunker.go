package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

// ChunkOptions overrides provider defaults for one submission
type ChunkOptions struct {
	AssistantID    string
	WorkflowID     string
	SchedulePlan   *dto.SchedulePlan
	MaxPerCampaign int
}

// ProviderChunker splits customer lists into provider-sized campaigns
type ProviderChunker interface {
	// SubmitChunks returns the campaigns created before any failure together with the error.
	// Earlier chunks are never rolled back.
	SubmitChunks(ctx context.Context, name string, customers []services.ProviderCustomer, opts ChunkOptions) ([]dto.ProviderCampaignRef, error)
	ProviderName() string
}

// ProviderChunkerImpl implements ProviderChunker on a ProviderClient
type ProviderChunkerImpl struct {
	client services.ProviderClient
	cfg    config.ProviderConfig
	clock  Clock
	logger logrus.FieldLogger
}

// NewProviderChunker creates a new provider chunker instance
func NewProviderChunker(client services.ProviderClient, cfg config.ProviderConfig, deps FlowDeps) ProviderChunker {
	deps = deps.withDefaults()
	return &ProviderChunkerImpl{
		client: client,
		cfg:    cfg,
		clock:  deps.Clock,
		logger: deps.Logger,
	}
}

func (p *ProviderChunkerImpl) ProviderName() string {
	if p.client == nil {
		return p.cfg.Name
	}
	return p.client.Name()
}

// ResolveAddressing picks the assistant or workflow for a submission. Request values win over
// configured defaults, and exactly one of the two must remain.
func ResolveAddressing(assistantID, workflowID string, cfg config.ProviderConfig) (string, string, error) {
	assistantID = strings.TrimSpace(assistantID)
	workflowID = strings.TrimSpace(workflowID)

	if assistantID == "" && workflowID == "" {
		assistantID = strings.TrimSpace(cfg.AssistantID)
		workflowID = strings.TrimSpace(cfg.WorkflowID)
	}

	switch {
	case assistantID != "" && workflowID != "":
		return "", "", NewBusinessError("ADDRESSING_MODE_CONFLICT", "Exactly one of assistantId and workflowId may be set", ErrAddressingModeConflict)
	case assistantID == "" && workflowID == "":
		return "", "", NewBusinessError("ADDRESSING_MODE_MISSING", "One of assistantId and workflowId is required", ErrAddressingModeMissing)
	}
	return assistantID, workflowID, nil
}

// resolveSchedulePlan validates a requested plan, falling back to the configured window
func resolveSchedulePlan(plan *dto.SchedulePlan, cfg config.ProviderConfig) (*services.ProviderSchedulePlan, error) {
	if plan == nil {
		if cfg.EarliestAt == "" {
			return nil, nil
		}
		plan = &dto.SchedulePlan{EarliestAt: cfg.EarliestAt, LatestAt: cfg.LatestAt}
	}

	earliest, err := time.Parse(time.RFC3339, strings.TrimSpace(plan.EarliestAt))
	if err != nil {
		return nil, NewBusinessError("INVALID_SCHEDULE_PLAN", "earliestAt must be an RFC3339 timestamp", ErrInvalidSchedulePlan)
	}
	out := &services.ProviderSchedulePlan{EarliestAt: earliest.UTC().Format(time.RFC3339)}

	if strings.TrimSpace(plan.LatestAt) != "" {
		latest, err := time.Parse(time.RFC3339, strings.TrimSpace(plan.LatestAt))
		if err != nil {
			return nil, NewBusinessError("INVALID_SCHEDULE_PLAN", "latestAt must be an RFC3339 timestamp", ErrInvalidSchedulePlan)
		}
		if !latest.After(earliest) {
			return nil, NewBusinessError("INVALID_SCHEDULE_PLAN", "latestAt must be after earliestAt", ErrInvalidSchedulePlan)
		}
		out.LatestAt = latest.UTC().Format(time.RFC3339)
	}
	return out, nil
}

// chunkCapacity never exceeds the provider's hard per-campaign limit
func (p *ProviderChunkerImpl) chunkCapacity(requested int) int {
	capacity := requested
	if capacity <= 0 {
		capacity = p.cfg.MaxPerCampaign
	}
	if capacity <= 0 || capacity > utils.ProviderMaxPerCampaign {
		capacity = utils.ProviderMaxPerCampaign
	}
	return capacity
}

// ChunkName renders "<name> <YYYYMMDD-HHMMSS>" with a part suffix when there is more than one chunk
func ChunkName(name string, at time.Time, part, total int) string {
	out := fmt.Sprintf("%s %s", strings.TrimSpace(name), utils.ChunkTimestamp(at))
	if total > 1 {
		out += fmt.Sprintf(" (part %d/%d)", part, total)
	}
	return out
}

func (p *ProviderChunkerImpl) SubmitChunks(ctx context.Context, name string, customers []services.ProviderCustomer, opts ChunkOptions) ([]dto.ProviderCampaignRef, error) {
	if p.client == nil {
		return nil, NewBusinessError("PROVIDER_NOT_CONFIGURED", "Provider is not configured", ErrProviderNotConfigured)
	}
	assistantID, workflowID, err := ResolveAddressing(opts.AssistantID, opts.WorkflowID, p.cfg)
	if err != nil {
		return nil, err
	}
	plan, err := resolveSchedulePlan(opts.SchedulePlan, p.cfg)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, NewBusinessError("NO_CUSTOMERS", "No customers to submit", ErrNoCustomers)
	}

	chunks := utils.ChunkSlice(customers, p.chunkCapacity(opts.MaxPerCampaign))
	at := p.clock.now()
	refs := make([]dto.ProviderCampaignRef, 0, len(chunks))

	for i, chunk := range chunks {
		chunkName := ChunkName(name, at, i+1, len(chunks))
		created, err := p.client.CreateCampaign(ctx, services.ProviderCampaignRequest{
			Name:          chunkName,
			PhoneNumberID: p.cfg.PhoneNumberID,
			Customers:     chunk,
			AssistantID:   assistantID,
			WorkflowID:    workflowID,
			SchedulePlan:  plan,
		})
		if err != nil {
			providerChunksTotal.WithLabelValues("failed").Inc()
			p.logger.WithFields(logrus.Fields{
				"chunk":     chunkName,
				"customers": len(chunk),
				"submitted": len(refs),
			}).WithError(err).Warn("Provider chunk submission failed")
			return refs, NewBusinessErrorf("PROVIDER_SUBMISSION_FAILED", "Provider rejected chunk %d of %d", fmt.Errorf("%w: %w", ErrProviderSubmissionFailed, err), i+1, len(chunks))
		}

		providerChunksTotal.WithLabelValues("submitted").Inc()
		refName := created.Name
		if refName == "" {
			refName = chunkName
		}
		refs = append(refs, dto.ProviderCampaignRef{
			ID:     created.ID,
			Name:   refName,
			Status: created.Status,
			Count:  len(chunk),
		})
	}

	return refs, nil
}
