package utils

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		region   string
		expected string
		valid    bool
	}{
		{name: "e164 passthrough", raw: "+14155552671", region: "US", expected: "+14155552671", valid: true},
		{name: "national with punctuation", raw: "(415) 555-2671", region: "US", expected: "+14155552671", valid: true},
		{name: "international prefix 00", raw: "00442079460958", region: "US", expected: "+442079460958", valid: true},
		{name: "empty region falls back", raw: "415 555 2671", region: "", expected: "+14155552671", valid: true},
		{name: "letters", raw: "abc", region: "US", valid: false},
		{name: "blank", raw: "   ", region: "US", valid: false},
		{name: "too short", raw: "123", region: "US", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.raw, tt.region)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.expected, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestChunkSlice(t *testing.T) {
	items := make([]int, 600)
	chunks := ChunkSlice(items, 500)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 100)

	assert.Nil(t, ChunkSlice([]int{}, 500))
	assert.Nil(t, ChunkSlice(items, 0))
	assert.Len(t, ChunkSlice([]int{1, 2, 3}, 500), 1)
}

func TestNewLogger(t *testing.T) {
	t.Run("defaults to info json", func(t *testing.T) {
		logger := NewLogger(LoggerOptions{Level: "bogus"})
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
		_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
		assert.True(t, isJSON)
	})

	t.Run("text formatter", func(t *testing.T) {
		logger := NewLogger(LoggerOptions{Level: "debug", Format: "text"})
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

		var buf bytes.Buffer
		logger.SetOutput(&buf)
		logger.WithField("campaign_id", 7).Info("seeded")
		assert.Contains(t, buf.String(), "campaign_id=7")
	})
}
