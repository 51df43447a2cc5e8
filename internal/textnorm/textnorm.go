// Package textnorm folds text to the unaccented lower-case form the pattern tables are written in.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text and strips combining marks ("Tráfico" becomes "trafico").
// A transform.Transformer keeps state, so a new chain is built per call.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return strings.ToLower(text)
	}

	return strings.ToLower(folded)
}
