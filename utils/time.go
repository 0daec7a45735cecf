// Package utils provides utility functions for the weather display.
package utils //nolint:revive // utils is a common and acceptable package name

import "time"

// DateLayout is the calendar date format used for stored forecast days.
const DateLayout = "2006-01-02"

// GetUTCString formats a time.Time as RFC 3339 in UTC.
func GetUTCString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// GetDateString formats the calendar date of t in its own location.
func GetDateString(t time.Time) string {
	return t.Format(DateLayout)
}
