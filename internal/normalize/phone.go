// Package normalize converts free-form customer input into the canonical
// forms stored in the database.  Every function is pure and idempotent:
// feeding a canonical value back in returns it unchanged.
package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhoneNumber is returned when a phone number does not reduce to
// a ten digit North American number.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// NormalizePhone strips every non-digit from raw and formats the remaining
// ten digits as "(AAA) BBB-CCCC".  An eleven digit number with a leading
// country code of 1 is accepted and the 1 is dropped.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", fmt.Errorf("%w: %q has %d digits", ErrInvalidPhoneNumber, raw, len(digits))
	}
	return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10]), nil
}

// NormalizeName trims surrounding whitespace.  Case is preserved; name
// comparisons are case-insensitive in storage.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}
