package models

import (
	"golang.org/x/text/language"
)

// Supported locales. The first one is the fallback.
var supportedLocales = []language.Tag{language.English, language.French}

var localeMatcher = language.NewMatcher(supportedLocales)

// NormalizeLocale maps any BCP 47 tag or Accept-Language value onto one of
// the supported base languages ("en" or "fr").
func NormalizeLocale(s string) string {
	if s == "" {
		return "en"
	}
	tag, _ := language.MatchStrings(localeMatcher, s)
	base, _ := tag.Base()
	return base.String()
}
