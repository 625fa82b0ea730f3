package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates in request bodies and filters.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string. An empty or nil value yields nil.
func ParseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid date (expected YYYY-MM-DD)", *s)
	}
	return &t, nil
}

// DateOnly truncates t to midnight UTC of the same calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
