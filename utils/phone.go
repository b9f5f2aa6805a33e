package utils

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used when a number carries no country code and no region is configured
const DefaultPhoneRegion = "US"

// NormalizePhone parses raw into E.164. The second result is false when raw is not a
// dialable number of acceptable length for its country.
func NormalizePhone(raw, defaultRegion string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", false
	}
	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + strings.TrimPrefix(cleaned, "00")
	}
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))
	if region == "" {
		region = DefaultPhoneRegion
	}

	parsed, err := phonenumbers.Parse(cleaned, region)
	if err != nil {
		return "", false
	}
	if phonenumbers.IsPossibleNumberWithReason(parsed) != phonenumbers.IS_POSSIBLE {
		return "", false
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), true
}
