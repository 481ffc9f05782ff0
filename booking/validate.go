package booking

import (
	"time"
)

// Fixed formats for the chat form fields. Everything is interpreted in the
// organizational time zone; free-form or locale-dependent input is rejected.
const (
	dateLayout = "01/02/2006"
	timeLayout = "03:04 PM"
)

// Details is a validated booking submission.
type Details struct {
	Purpose string
	Start   time.Time
	End     time.Time
}

// ParseDetails validates the raw form fields in one pass, accumulating every
// field error instead of stopping at the first, so the caller can surface all
// problems at once. The end-after-start check only runs when all three fields
// parse on their own.
func ParseDetails(rawDate, rawStart, rawEnd, purpose string, loc *time.Location) (Details, *ValidationError) {
	fields := map[string]string{}

	day, err := time.ParseInLocation(dateLayout, rawDate, loc)
	if err != nil {
		fields["date"] = "not a valid date (MM/DD/YYYY)"
	}
	startClock, err := time.Parse(timeLayout, rawStart)
	if err != nil {
		fields["start"] = "not a valid time (HH:MM AM)"
	}
	endClock, err := time.Parse(timeLayout, rawEnd)
	if err != nil {
		fields["end"] = "not a valid time (HH:MM AM)"
	}
	if len(fields) > 0 {
		return Details{}, &ValidationError{Fields: fields}
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), endClock.Hour(), endClock.Minute(), 0, 0, loc)
	if !end.After(start) {
		fields["end"] = "must be after start"
		return Details{}, &ValidationError{Fields: fields}
	}

	return Details{Purpose: purpose, Start: start, End: end}, nil
}
