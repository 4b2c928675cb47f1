// Package identity canonicalizes player display names.
//
// The lobby server disambiguates duplicate names with a trailing " (N)"
// suffix, and players freely retype each other's names with different
// casing or accents. Every comparison or map key in the client goes
// through this package so "Avery (2)", "avery" and "Avéry" land on the
// same player.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var suffixRE = regexp.MustCompile(`\s*\(\d+\)\s*$`)

var (
	foldCaser    = cases.Fold()
	stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize strips the lobby disambiguation suffix and surrounding
// whitespace. Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	return strings.TrimSpace(suffixRE.ReplaceAllString(name, ""))
}

// Key returns the canonical comparison form of a name: normalized,
// accent-stripped, case-folded. Suitable as a map key.
func Key(name string) string {
	s := Normalize(name)
	if out, _, err := transform.String(stripAccents, s); err == nil {
		s = out
	}
	return foldCaser.String(s)
}

// Equal reports whether two display names refer to the same player.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
