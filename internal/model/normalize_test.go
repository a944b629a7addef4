package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dashes", "claude-sonnet-4-5", "claudesonnet45"},
		{"dots and underscores", "claude_sonnet-4.5", "claudesonnet45"},
		{"mixed case", "Claude-Opus-4", "claudeopus4"},
		{"already canonical", "claudehaiku35", "claudehaiku35"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalKey(tt.in))
		})
	}
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "opus", Family("claude-opus-4-5-20251101"))
	assert.Equal(t, "sonnet", Family("Claude-Sonnet-4"))
	assert.Equal(t, "haiku", Family("claude-3-5-haiku-20241022"))
	assert.Equal(t, "gpt-4o", Family("GPT-4o"))
}

func TestTokenCounts(t *testing.T) {
	tc := TokenCounts{InputTokens: 100, OutputTokens: 50}
	assert.Equal(t, int64(150), tc.Total())
	assert.False(t, tc.IsZero())

	tc.Add(TokenCounts{CacheCreationTokens: 10, CacheReadTokens: 5})
	assert.Equal(t, int64(165), tc.Total())

	assert.True(t, TokenCounts{}.IsZero())
}
