package queue

import (
	"fmt"
	"strings"
	"time"
)

// clockLayout is the wall-clock format slots are stored and displayed in.
// The zero-padded hour layout keeps output stable ("02:05 PM", never "2:5 PM").
const clockLayout = "03:04 PM"

// ClockTime is a time-of-day in minutes since midnight. Slot times carry no
// date or zone; all queue arithmetic happens on these values.
type ClockTime int

// ParseClockTime parses "HH:MM AM/PM". "12:xx AM" maps to hour 0 and
// "12:xx PM" stays 12, which time.Parse handles with the 03 layout.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse(clockLayout, strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("parse slot time %q: %w", s, err)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// Add returns the clock time the given number of minutes later (or earlier
// when negative), wrapping around midnight.
func (c ClockTime) Add(minutes int) ClockTime {
	const day = 24 * 60
	m := (int(c) + minutes) % day
	if m < 0 {
		m += day
	}
	return ClockTime(m)
}

// String formats the value as zero-padded "HH:MM AM/PM".
func (c ClockTime) String() string {
	t := time.Date(0, 1, 1, int(c)/60, int(c)%60, 0, 0, time.UTC)
	return t.Format(clockLayout)
}
