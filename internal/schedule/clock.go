// Package schedule resolves a room's weekly availability into concrete
// bookable windows and session start times for a calendar date.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the wire format of calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format of wall-clock times.
	ClockLayout = "15:04"

	minutesPerDay = 24 * 60
)

var (
	ErrFormat          = errors.New("invalid date or time format")
	ErrInvalidDuration = errors.New("session duration must be positive")
)

// ClockTime is a zero-padded 24-hour wall-clock time ("HH:MM").
type ClockTime string

// ParseClock validates s and returns it as a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	if _, err := ToMinutes(ClockTime(s)); err != nil {
		return "", err
	}
	return ClockTime(s), nil
}

// ToMinutes converts "HH:MM" to minutes since midnight.
func ToMinutes(t ClockTime) (int, error) {
	s := string(t)
	if len(s) != 5 || s[2] != ':' || !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrFormat, s)
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("%w: %q is out of range", ErrFormat, s)
	}
	return hour*60 + minute, nil
}

// FromMinutes formats minutes since midnight as "HH:MM".
// Values outside a single day wrap around midnight.
func FromMinutes(m int) ClockTime {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return ClockTime(fmt.Sprintf("%02d:%02d", m/60, m%60))
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return ParseDateIn(s, time.UTC)
}

// ParseDateIn parses a YYYY-MM-DD calendar date at midnight in loc.
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrFormat, s)
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrFormat, s)
	}
	return d, nil
}

// CombineLocal builds the local instant for date and t. No zone conversion
// is applied: the wall clock is taken as is in time.Local.
func CombineLocal(date string, t ClockTime) (time.Time, error) {
	return CombineIn(date, t, time.Local)
}

// CombineIn is CombineLocal for an explicit location.
func CombineIn(date string, t ClockTime, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := ParseDateIn(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ToMinutes(t)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc), nil
}

// AddMinutes shifts an instant by the given number of minutes.
func AddMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
