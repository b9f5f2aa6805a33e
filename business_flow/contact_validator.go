package businessflow

import (
	"strings"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
)

// ContactVerdict is the outcome of validating one contact for dispatch
type ContactVerdict struct {
	Valid      bool
	Normalized string
	Reason     string
}

// ValidateContact classifies a contact. An unusable phone is reported before opt-out.
func ValidateContact(phone string, optedOut bool, region string) ContactVerdict {
	normalized, ok := utils.NormalizePhone(phone, region)
	if !ok {
		return ContactVerdict{Reason: models.ReasonInvalidPhone}
	}
	if optedOut {
		return ContactVerdict{Normalized: normalized, Reason: models.ReasonOptedOut}
	}
	return ContactVerdict{Valid: true, Normalized: normalized}
}

func hasPhone(phone string) bool {
	return strings.TrimSpace(phone) != ""
}
