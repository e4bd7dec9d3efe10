// Package filename turns titles into download file names that survive a
// Content-Disposition header.
package filename

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLength = 120

// ASCII is Fold with a "podcast" fallback for titles that fold to nothing.
func ASCII(title string) string {
	if name := Fold(title); name != "" {
		return name
	}
	return "podcast"
}

// Fold removes accents and replaces anything outside [A-Za-z0-9 ._-] with an
// underscore. The result may be empty.
func Fold(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '.' || r == '-'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	name := strings.Trim(b.String(), " ._")
	if len(name) > maxLength {
		name = strings.TrimRight(name[:maxLength], " ._")
	}
	return name
}
