// Package timeutil provides UTC calendar helpers shared by the aggregation
// pipeline. All day math is done in UTC; a day key is the canonical
// YYYY-MM-DD identity of a calendar day and must never be derived from the
// host timezone.
package timeutil

import "time"

const (
	// DayKeyLayout is the canonical day key format.
	DayKeyLayout = "2006-01-02"

	// MonthKeyLayout is the canonical month key format.
	MonthKeyLayout = "2006-01"
)

// DayKey returns the UTC day key for a timestamp.
func DayKey(ts time.Time) string {
	return ts.UTC().Format(DayKeyLayout)
}

// MonthKey returns the UTC month key for a timestamp.
func MonthKey(ts time.Time) string {
	return ts.UTC().Format(MonthKeyLayout)
}

// ParseDayKey parses a day key into the instant of its UTC midnight.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, key, time.UTC)
}

// DayRange returns the [start, end) instants of a day key. End is the
// midnight of the following day, exclusive.
func DayRange(key string) (start, end time.Time, err error) {
	start, err = ParseDayKey(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// IsDayComplete reports whether the day has fully elapsed at the given
// instant. Malformed keys report false.
func IsDayComplete(key string, now time.Time) bool {
	_, end, err := DayRange(key)
	if err != nil {
		return false
	}
	return !now.UTC().Before(end)
}

// DayKeysBetween returns every day key from first to last inclusive,
// oldest first. Returns nil if either key is malformed or last precedes
// first.
func DayKeysBetween(first, last string) []string {
	start, err := ParseDayKey(first)
	if err != nil {
		return nil
	}
	stop, err := ParseDayKey(last)
	if err != nil || stop.Before(start) {
		return nil
	}

	var keys []string
	for d := start; !d.After(stop); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(DayKeyLayout))
	}
	return keys
}

// PreviousDayKey returns the day key of the day before ts, in UTC.
func PreviousDayKey(ts time.Time) string {
	return ts.UTC().AddDate(0, 0, -1).Format(DayKeyLayout)
}
