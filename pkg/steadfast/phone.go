package steadfast

import "strings"

// NormalizePhone converts a Bangladeshi phone number to the 11-digit local
// format the courier requires. It accepts +8801712345678, 8801712345678,
// 01712345678 and similar: non-digits are stripped, a 880 country prefix is
// removed, and a missing leading zero is restored.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()

	if len(normalized) == 13 && strings.HasPrefix(normalized, "880") {
		normalized = normalized[3:]
	}
	if len(normalized) == 10 && !strings.HasPrefix(normalized, "0") {
		normalized = "0" + normalized
	}
	return normalized
}

// ValidPhone reports whether the value is an 11-digit local phone number.
func ValidPhone(phone string) bool {
	if len(phone) != 11 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
