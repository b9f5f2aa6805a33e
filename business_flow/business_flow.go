// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/utils"
	"github.com/sirupsen/logrus"
)

// Identity is the owner resolved upstream from the bearer token. A zero OwnerID is never valid.
type Identity struct {
	OwnerID uint
	Subject string
}

// Validate rejects the zero identity before any state is touched
func (i Identity) Validate() error {
	if i.OwnerID == 0 {
		return NewBusinessError("IDENTITY_REQUIRED", "Identity is required", ErrIdentityRequired)
	}
	return nil
}

// Clock returns the current time. Flows take one so tests can control deadlines.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return utils.UTCNow()
	}
	return c().UTC()
}

// FlowDeps carries the collaborators shared by every flow. Zero fields get working defaults.
type FlowDeps struct {
	Logger    logrus.FieldLogger
	Clock     Clock
	Pacers    PacerFactory
	Publisher services.EventPublisher
	Reporter  services.ErrorReporter
	Cache     services.SessionCache // optional
}

func (d FlowDeps) withDefaults() FlowDeps {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Clock == nil {
		d.Clock = utils.UTCNow
	}
	if d.Pacers == nil {
		d.Pacers = NewRatePacer
	}
	if d.Publisher == nil {
		d.Publisher = services.NewNoopPublisher()
	}
	if d.Reporter == nil {
		d.Reporter = services.NewNoopReporter()
	}
	return d
}

// ClientMetadata holds all client-related information for audit logging and tracing
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func (cm *ClientMetadata) requestID() string {
	if cm == nil {
		return ""
	}
	return cm.RequestID
}
