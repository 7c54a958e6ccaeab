package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTime is a request timestamp that also accepts a bare calendar date
// ("2006-01-02"). A bare date has no zone of its own; In places it at
// midnight in the zone the caller counts days in.
type DateTime struct {
	Time     time.Time
	DateOnly bool
}

// DateTimeError reports a value that is neither RFC 3339 nor YYYY-MM-DD.
type DateTimeError struct {
	Value string
}

func (e *DateTimeError) Error() string {
	return fmt.Sprintf("invalid date %q, expected YYYY-MM-DD or RFC 3339", e.Value)
}

// Timestamp wraps an exact instant.
func Timestamp(t time.Time) *DateTime {
	return &DateTime{Time: t}
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &DateTimeError{Value: string(data)}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DateTime{Time: t}
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		*d = DateTime{Time: t, DateOnly: true}
		return nil
	}
	return &DateTimeError{Value: s}
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.DateOnly {
		return json.Marshal(d.Time.Format(time.DateOnly))
	}
	return json.Marshal(d.Time.Format(time.RFC3339Nano))
}

// In resolves the value to an instant. Exact timestamps are returned as is.
func (d DateTime) In(loc *time.Location) time.Time {
	if !d.DateOnly {
		return d.Time
	}
	y, m, day := d.Time.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}
