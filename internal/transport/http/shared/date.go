package shared

import (
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(DayLayout, value)
}

// ReferenceDate reads a report reference day, defaulting to now.
func ReferenceDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	return ParseDate(raw)
}
