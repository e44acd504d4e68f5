// Package taxid normalizes and validates Romanian fiscal identifiers (CUI/CIF).
// Every downstream lookup key must pass through Normalize so that differently
// formatted representations of the same identifier collide.
package taxid

import "strings"

// controlKey is the official CUI checksum key.
const controlKey = "753217532"

const (
	minDigits = 2
	maxDigits = 10
)

// Normalize canonicalizes a raw identifier: strips the RO prefix, whitespace
// and punctuation, drops leading zeros and validates the checksum.
// It returns ("", false) for anything malformed and never panics.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && strings.EqualFold(s[:2], "RO") {
		s = s[2:]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '-' || r == '/' || r == '\t':
			// formatting noise, skip
		default:
			return "", false
		}
	}

	digits := strings.TrimLeft(b.String(), "0")
	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", false
	}
	if !checksumValid(digits) {
		return "", false
	}
	return digits, true
}

// IsValid re-validates an already-normalized identifier.
func IsValid(id string) bool {
	n, ok := Normalize(id)
	return ok && n == id
}

// checksumValid verifies the control digit: the first n-1 digits are padded
// left to 9, multiplied pairwise with the control key, summed, and the
// control value is sum*10 mod 11 (with 10 mapping to 0).
func checksumValid(digits string) bool {
	payload := digits[:len(digits)-1]
	control := int(digits[len(digits)-1] - '0')

	padded := strings.Repeat("0", 9-len(payload)) + payload
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(padded[i]-'0') * int(controlKey[i]-'0')
	}

	c := sum * 10 % 11
	if c == 10 {
		c = 0
	}
	return c == control
}
