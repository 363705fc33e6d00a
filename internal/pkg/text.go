package pkg

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// strictPolicy strips every HTML element. It is safe for concurrent use.
var strictPolicy = bluemonday.StrictPolicy()

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeText removes markup from user-supplied free text (chat messages,
// reviews, quote descriptions, bios) and trims surrounding whitespace.
// The result is plain text: the entities the policy emits are decoded again,
// so "l'évier" is stored as typed and length limits count real characters.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// Slugify lowercases s, folds accents and joins words with hyphens:
// "Électricité Générale" becomes "electricite-generale".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}
