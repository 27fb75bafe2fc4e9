package domain

import "strings"

// languageCodes maps common language names to ISO 639-1 codes.
var languageCodes = map[string]string{
	"french":     "fr",
	"english":    "en",
	"german":     "de",
	"spanish":    "es",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"chinese":    "zh",
}

// NormalizeLanguage returns the two-letter code for a language name.
// Unrecognized input is passed through lowercased, so callers may already
// supply a code.
func NormalizeLanguage(lang string) string {
	key := strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageCodes[key]; ok {
		return code
	}
	return key
}
