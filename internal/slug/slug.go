// Package slug provides URL-friendly slug generation from arbitrary
// strings. German umlauts are transliterated rather than stripped so
// bulletin titles like "Vermisste aus Köln" stay readable in URLs.
package slug

import (
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespace collapses any whitespace run into a single hyphen.
	whitespace = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)

	umlauts = strings.NewReplacer(
		"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
		"Ä", "ae", "Ö", "oe", "Ü", "ue",
	)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Vermisste Person aus Köln!" → "vermisste-person-aus-koeln"
func Generate(s string) string {
	result := umlauts.Replace(strings.TrimSpace(s))
	result = strings.ToLower(result)
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}
