package domain

import (
	"fmt"
	"time"
)

// DateLayout is the civil date format used everywhere in the pipeline:
// effective dates, requested periods, cache keys. Dates in this layout
// compare correctly as plain strings, which keeps record selection and
// result ordering free of time.Time round-trips.
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD civil date and returns it normalized.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t.Format(DateLayout), nil
}
