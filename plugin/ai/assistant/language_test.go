package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKeyword(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"Switch to HINDI please", "hindi", true},
		{"हिन्दी में बताइए", "hindi", true},
		{"telugu lo cheppandi", "telugu", true},
		{"answer in eng", "english", true},
		{"how does the engine work", "", false},
		{"what is the main point", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := MatchKeyword(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestLanguageHelpers(t *testing.T) {
	assert.True(t, IsSupported(" Marathi "))
	assert.False(t, IsSupported("french"))
	assert.Equal(t, "Kannada", DisplayName("kannada"))
	assert.Equal(t, "English", DisplayName("french"))
	assert.Len(t, SupportedLanguages(), 6)
	for _, code := range SupportedLanguages() {
		assert.True(t, IsSupported(code), code)
	}

	assert.Equal(t, "Respond in English.", languageInstruction("ENGLISH"))
	assert.Equal(t, "Respond in English.", languageInstruction("french"))
	assert.Equal(t,
		"Respond entirely in Telugu. All labels, headings, and content must be in Telugu.",
		languageInstruction("telugu"))
}
