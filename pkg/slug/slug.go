// pkg/slug/slug.go
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFolder decomposes accented letters and strips the combining marks,
// so "é" becomes "e" and "ô" becomes "o".
var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify normalizes free text into a deterministic identifier used as the
// join key between source category labels and canonical option names.
// Accented latin letters are folded to ASCII, runs of non-alphanumeric
// characters collapse to a single hyphen, hyphens are trimmed, trailing "s"
// characters are stripped as a naive plural removal, and the result is
// lower-cased. Returns an empty string for empty input.
//
// Two labels a human would consider "the same option" must slugify
// identically. This is a heuristic join, not exact matching.
func Slugify(text string) string {
	if text == "" {
		return ""
	}

	folded, _, err := transform.String(asciiFolder, text)
	if err == nil {
		text = folded
	}

	// Replace every run of non letter/digit characters with a single hyphen,
	// dropping anything that did not fold down to ASCII.
	var sb strings.Builder
	sb.Grow(len(text))
	lastHyphen := false
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		case r > unicode.MaxASCII:
			// non-transliterable rune, drop it entirely
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	out := sb.String()
	out = strings.Trim(out, "-")
	out = strings.TrimRight(out, "s")
	out = strings.Trim(out, "-")
	return strings.ToLower(out)
}
