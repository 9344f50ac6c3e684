package metaconv

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

const bangladeshCountryCode = "880"

// NormalizeEmail trims and lowercases. Empty input normalizes to "".
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone converts a Bangladeshi phone to Meta's expected
// country-code-prefixed digits: 01712345678 becomes 8801712345678.
// Inputs that do not reduce to a 10-digit subscriber number normalize to "".
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) == 13 && strings.HasPrefix(normalized, bangladeshCountryCode) {
		normalized = normalized[3:]
	}
	if len(normalized) == 11 && strings.HasPrefix(normalized, "0") {
		normalized = normalized[1:]
	}
	if len(normalized) != 10 {
		return ""
	}
	return bangladeshCountryCode + normalized
}

// NormalizeFirstName lowercases the first whitespace-separated token and
// strips punctuation, keeping letters, digits and combining marks in any
// script. Marks matter: Bengali vowel signs are category Mn and dropping
// them would change the hashed name.
func NormalizeFirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	var first strings.Builder
	for _, r := range strings.ToLower(fields[0]) {
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || r == '_' {
			first.WriteRune(r)
		}
	}
	return first.String()
}

// HashValue SHA-256 hashes a normalized value as lowercase hex, the format
// Meta requires for user_data PII fields.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
