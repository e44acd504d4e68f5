// Package slug derives URL-safe, globally unique company slugs.
package slug

import (
	"strings"
	"unicode"
)

// romanian maps diacritics common in registry names to ASCII.
var romanian = map[rune]rune{
	'ă': 'a', 'â': 'a', 'î': 'i', 'ș': 's', 'ş': 's', 'ț': 't', 'ţ': 't',
	'Ă': 'a', 'Â': 'a', 'Î': 'i', 'Ș': 's', 'Ş': 's', 'Ț': 't', 'Ţ': 't',
}

// legalSuffixes are dropped from the slug; they carry no identity.
var legalSuffixes = []string{"srl", "sa", "pfa", "snc", "sca", "ii", "if"}

// Make converts a legal name into a lowercase hyphenated slug.
// Returns "" if nothing slug-worthy remains.
func Make(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range name {
		if mapped, ok := romanian[r]; ok {
			r = mapped
		}
		r = unicode.ToLower(r)
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	parts := strings.Split(strings.Trim(b.String(), "-"), "-")
	out := parts[:0]
	for _, p := range parts {
		if p == "" || isLegalSuffix(p) {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "-")
}

// ForCompany combines the best available name with the fiscal identifier so
// skeleton slugs are unique even when names collide or are missing.
func ForCompany(name, taxID string) string {
	s := Make(name)
	if s == "" {
		return "firma-" + taxID
	}
	return s + "-" + taxID
}

func isLegalSuffix(p string) bool {
	for _, s := range legalSuffixes {
		if p == s {
			return true
		}
	}
	return false
}
