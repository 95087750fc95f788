// Package locale picks which of the help database's locales best serves a
// user's language preferences.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Negotiate matches an Accept-Language style preference ("fr-CH, fr;q=0.9,
// en;q=0.8") against the locales available in the database and returns the
// database key of the best match.
//
// Available locales that do not parse as BCP 47 tags are only matched by exact
// (case-insensitive) comparison. The result is false when the preference is
// empty or nothing matches with at least low confidence.
func Negotiate(available []string, preference string) (string, bool) {
	preference = strings.TrimSpace(preference)
	if preference == "" || len(available) == 0 {
		return "", false
	}

	for _, a := range available {
		if strings.EqualFold(a, preference) {
			return a, true
		}
	}

	desired, _, err := language.ParseAcceptLanguage(preference)
	if err != nil || len(desired) == 0 {
		return "", false
	}

	var tags []language.Tag
	var keys []string
	for _, a := range available {
		tag, err := language.Parse(normalize(a))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		keys = append(keys, a)
	}
	if len(tags) == 0 {
		return "", false
	}

	matcher := language.NewMatcher(tags)
	_, index, confidence := matcher.Match(desired...)
	if confidence < language.Low {
		return "", false
	}
	return keys[index], true
}

// normalize accepts the underscore form ("pt_BR") that help files often use.
func normalize(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
