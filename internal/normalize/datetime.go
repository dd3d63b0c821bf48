package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// CanonicalLayout is the storage format for every reservation timestamp.
// Values in this layout sort lexicographically in chronological order.
const CanonicalLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar-day prefix of CanonicalLayout.
const DateLayout = "2006-01-02"

// ErrInvalidDateTime is returned when input cannot be read as a calendar
// date and time.
var ErrInvalidDateTime = errors.New("invalid datetime")

// NormalizeDatetime parses free-form date/time text and renders it in
// CanonicalLayout.  Wall-clock fields are kept as written; an explicit
// offset in the input is not converted.
func NormalizeDatetime(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidDateTime)
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDateTime, raw, err)
	}
	return FormatCanonical(t), nil
}

// ParseCanonical reads a value previously produced by NormalizeDatetime.
func ParseCanonical(s string) (time.Time, error) {
	t, err := time.ParseInLocation(CanonicalLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
	}
	return t, nil
}

// FormatCanonical renders t in CanonicalLayout using its own wall clock.
func FormatCanonical(t time.Time) string {
	return t.Format(CanonicalLayout)
}
