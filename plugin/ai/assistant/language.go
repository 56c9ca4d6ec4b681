package assistant

import (
	"fmt"
	"strings"
)

// DefaultLanguage is used when a session has not picked one.
const DefaultLanguage = "english"

// supportedLanguages maps a language code to its display name.
var supportedLanguages = map[string]string{
	"english": "English",
	"hindi":   "Hindi",
	"kannada": "Kannada",
	"tamil":   "Tamil",
	"telugu":  "Telugu",
	"marathi": "Marathi",
}

// languageKeywords are literal markers (including native script) that name a language.
var languageKeywords = map[string][]string{
	"hindi":   {"hindi", "हिंदी", "हिन्दी"},
	"kannada": {"kannada", "ಕನ್ನಡ"},
	"tamil":   {"tamil", "தமிழ்"},
	"telugu":  {"telugu", "తెలుగు"},
	"marathi": {"marathi", "मराठी"},
	"english": {"english", "eng"},
}

// keywordOrder fixes match precedence so results are deterministic.
var keywordOrder = []string{"hindi", "kannada", "tamil", "telugu", "marathi", "english"}

// SupportedLanguages returns the language codes in a stable order.
func SupportedLanguages() []string {
	return []string{"english", "hindi", "kannada", "tamil", "telugu", "marathi"}
}

// IsSupported reports whether code names a supported language.
func IsSupported(code string) bool {
	_, ok := supportedLanguages[normalizeLanguage(code)]
	return ok
}

// DisplayName returns the human name for code, falling back to English.
func DisplayName(code string) string {
	if name, ok := supportedLanguages[normalizeLanguage(code)]; ok {
		return name
	}
	return supportedLanguages[DefaultLanguage]
}

// MatchKeyword looks for an explicit language keyword in text without calling a model.
func MatchKeyword(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, code := range keywordOrder {
		for _, kw := range languageKeywords[code] {
			if containsWord(lowered, kw) {
				return code, true
			}
		}
	}
	return "", false
}

func languageInstruction(code string) string {
	code = normalizeLanguage(code)
	if code == DefaultLanguage || !IsSupported(code) {
		return "Respond in English."
	}
	name := DisplayName(code)
	return fmt.Sprintf("Respond entirely in %s. All labels, headings, and content must be in %s.", name, name)
}

func normalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// containsWord matches ASCII keywords on word boundaries so "eng" does not
// match "engine". Non-ASCII keywords match as substrings.
func containsWord(text, word string) bool {
	if !isASCII(word) {
		return strings.Contains(text, word)
	}
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		if (idx == 0 || !isLetter(text[idx-1])) && (end == len(text) || !isLetter(text[end])) {
			return true
		}
		start = idx + 1
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
