package audio

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/japaniel/vocab/pkg/domain"
)

// languageCodes maps language names to text-to-speech codes.
var languageCodes = map[string]string{
	"spanish":    "es",
	"dutch":      "nl",
	"french":     "fr",
	"german":     "de",
	"english":    "en",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"chinese":    "zh-cn",
	"korean":     "ko",
	"russian":    "ru",
	"polish":     "pl",
	"swedish":    "sv",
	"turkish":    "tr",
}

var codePattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]{2,4})?$`)

// LanguageCode resolves a language name ("Spanish") or code ("es",
// "zh-CN") to the lower-case code the speech backend expects.
func LanguageCode(lang string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageCodes[key]; ok {
		return code, nil
	}
	if codePattern.MatchString(key) {
		return key, nil
	}
	return "", fmt.Errorf("unsupported language %q: %w", lang, domain.ErrValidation)
}
