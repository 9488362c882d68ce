// Package phone normalizes freeform phone input into a Kenyan MSISDN
// (2547XXXXXXXX) suitable for an M-Pesa STK push.
package phone

import "strings"

const (
	// CountryCode is the Kenyan dialing prefix without the plus sign.
	CountryCode = "254"
	// MSISDNLength is the full subscriber number length: 254 + 9 digits.
	MSISDNLength = 12
)

// Normalize strips non-digits and rewrites the number into 254XXXXXXXXX form.
// It is total: unparseable input degrades to a truncated string that fails
// IsValid downstream, it never errors.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, CountryCode):
		return truncate(digits, MSISDNLength)
	case strings.HasPrefix(digits, "0"):
		// Trunk prefix: 0712... -> 254712...
		return truncate(CountryCode+digits[1:], MSISDNLength)
	case strings.HasPrefix(digits, "7"), strings.HasPrefix(digits, "1"):
		// Short-form mobile number: 712... -> 254712...
		return truncate(CountryCode+digits, MSISDNLength)
	default:
		return truncate(digits, MSISDNLength)
	}
}

// IsValid reports whether msisdn is a complete normalized subscriber number.
func IsValid(msisdn string) bool {
	if len(msisdn) != MSISDNLength {
		return false
	}
	if !strings.HasPrefix(msisdn, CountryCode) {
		return false
	}
	for _, r := range msisdn {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
