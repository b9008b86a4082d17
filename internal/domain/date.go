package domain

import "time"

// DateLayout is the canonical on-disk date format.
const DateLayout = "2006-01-02"

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a canonical date in the local time zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// DatePtr formats t and returns a pointer to the result.
func DatePtr(t time.Time) *string {
	s := FormatDate(t)
	return &s
}

func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to value or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AddDays moves t by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}
