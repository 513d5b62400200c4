package blocking

import (
	"time"
)

// Duration is the length of a Risk Settings block
type Duration string

const (
	Day   Duration = "day"
	Week  Duration = "week"
	Month Duration = "month"
)

// Durations lists the accepted block durations
var Durations = []Duration{Day, Week, Month}

// IsValid reports whether d is a known duration
func (d Duration) IsValid() bool {
	switch d {
	case Day, Week, Month:
		return true
	}
	return false
}

func (d Duration) String() string {
	return string(d)
}

// ParseDuration accepts exactly "day", "week" or "month"
func ParseDuration(value string) (Duration, error) {
	d := Duration(value)
	if !d.IsValid() {
		return "", invalidDurationError(value)
	}
	return d, nil
}

// ComputeBlockUntil returns the instant a block started at now ends. All
// windows close at 23:59:59.999 UTC:
//   - Day: the current day.
//   - Week: the coming Sunday. On a Sunday the block runs to the next one.
//   - Month: the last day of the current month.
func ComputeBlockUntil(now time.Time, d Duration) (time.Time, error) {
	now = now.UTC()

	switch d {
	case Day:
		return endOfDay(now.Year(), now.Month(), now.Day()), nil
	case Week:
		daysUntilSunday := 7 - int(now.Weekday())
		sunday := now.AddDate(0, 0, daysUntilSunday)
		return endOfDay(sunday.Year(), sunday.Month(), sunday.Day()), nil
	case Month:
		// day 0 of the next month normalizes to the last day of this one
		return endOfDay(now.Year(), now.Month()+1, 0), nil
	default:
		return time.Time{}, invalidDurationError(string(d))
	}
}

func endOfDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}
