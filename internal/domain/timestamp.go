package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the textual form of every journal timestamp,
// e.g. "08:00:00 01.01.2024".
const TimestampLayout = "15:04:05 02.01.2006"

// NotAvailable is shown in display exports in place of an unset timestamp.
// On disk an unset timestamp is an empty cell.
const NotAvailable = "N/A"

// ParseTimestamp parses s in TimestampLayout within loc.
// An empty (or whitespace-only) string yields (nil, nil): the field is unset.
// Anything else that fails to parse returns ErrMalformedTimestamp.
func ParseTimestamp(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == NotAvailable {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(TimestampLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	return &t, nil
}

// FormatTimestamp returns t in TimestampLayout, or "" when t is nil.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(TimestampLayout)
}

// DisplayTimestamp is FormatTimestamp with NotAvailable for unset values.
func DisplayTimestamp(t *time.Time) string {
	if t == nil {
		return NotAvailable
	}
	return t.Format(TimestampLayout)
}
