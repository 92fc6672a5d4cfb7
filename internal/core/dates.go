package core

import (
	"strings"
	"time"
)

// Layouts accepted for caller supplied dates, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// PeriodLayout formats a period key.
const PeriodLayout = "2006-01"

// ParseDate parses an ISO date or date-time. Date-only values are midnight
// UTC so the calendar day survives any later formatting. Values with an
// offset keep it.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("date", "", "is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("date", s, "must be an ISO date")
}

// PeriodKey returns the "YYYY-MM" bucket of t. Buckets are UTC months, the
// same months MonthRange selects.
func PeriodKey(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}

// ParsePeriod parses a "YYYY-MM" key into the first instant of that month, UTC.
func ParsePeriod(key string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, strings.TrimSpace(key))
	if err != nil {
		return time.Time{}, invalid("period", key, "must be YYYY-MM")
	}
	return t, nil
}

// MonthRange returns the half-open interval [start, end) covering the given
// calendar month in UTC. month is 1-12.
func MonthRange(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
