package businessflow

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/models"
)

// CampaignParams are the dispatch settings embedded in a campaign description
type CampaignParams struct {
	Interval time.Duration
	Message  string
}

// MaxCampaignInterval caps the pause between two sends of a campaign
const MaxCampaignInterval = time.Hour

// descriptionParams mirrors the keys accepted in a JSON description
type descriptionParams struct {
	IntervalSeconds *float64 `json:"interval_seconds"`
	RatePerSecond   *float64 `json:"rate_per_second"`
	Message         *string  `json:"message"`
}

// ParseCampaignParams reads interval_seconds, rate_per_second and message from a description.
// The description may be a JSON object or lines of "key: value" / "key=value". An explicit
// interval wins over a rate; with neither, defaultRate sends per second are used. The resulting
// interval is clamped to [0, MaxCampaignInterval].
func ParseCampaignParams(description string, defaultRate float64) CampaignParams {
	if defaultRate <= 0 {
		defaultRate = 1
	}
	parsed := parseDescription(description)

	params := CampaignParams{Interval: rateToInterval(defaultRate)}
	switch {
	case parsed.IntervalSeconds != nil && *parsed.IntervalSeconds > 0:
		params.Interval = secondsToInterval(*parsed.IntervalSeconds)
	case parsed.RatePerSecond != nil && *parsed.RatePerSecond > 0:
		params.Interval = rateToInterval(*parsed.RatePerSecond)
	}
	if parsed.Message != nil {
		params.Message = strings.TrimSpace(*parsed.Message)
	}
	return params
}

func rateToInterval(perSecond float64) time.Duration {
	return secondsToInterval(1 / perSecond)
}

// secondsToInterval clamps before converting so huge or non-finite values cannot overflow a Duration
func secondsToInterval(seconds float64) time.Duration {
	switch {
	case math.IsNaN(seconds) || seconds <= 0:
		return 0
	case seconds >= MaxCampaignInterval.Seconds():
		return MaxCampaignInterval
	}
	return time.Duration(seconds * float64(time.Second))
}

func parseDescription(description string) descriptionParams {
	var out descriptionParams
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return out
	}

	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
			return out
		}
		out = descriptionParams{}
	}

	for line := range strings.SplitSeq(trimmed, "\n") {
		key, value, ok := splitParamLine(line)
		if !ok {
			continue
		}
		switch key {
		case "interval_seconds", "interval":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				out.IntervalSeconds = &f
			}
		case "rate_per_second", "rate":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				out.RatePerSecond = &f
			}
		case "message", "prompt":
			v := strings.Trim(value, `"`)
			out.Message = &v
		}
	}
	return out
}

func splitParamLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	idx := strings.IndexAny(line, ":=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	return key, value, true
}

// RenderMessage fills {{name}}, {{phone}} and {{email}} placeholders
func RenderMessage(template string, contact *models.Contact, normalizedPhone string) string {
	if template == "" || contact == nil {
		return template
	}
	return strings.NewReplacer(
		"{{name}}", contact.Name,
		"{{phone}}", normalizedPhone,
		"{{email}}", contact.Email,
	).Replace(template)
}
