// Package core defines the domain model for the tracker: records, closed
// enumerations, money and calendar-day handling.
//
// This file implements local-calendar day arithmetic. Days are fixed-width
// zero-padded YYYY-MM-DD strings, so lexicographic comparison is date order.
package core

import (
	"fmt"
	"time"
)

// Day is a calendar date with no time component, formatted YYYY-MM-DD.
type Day string

// Today derives the day from the clock's local year/month/day fields.
// It must never go through a UTC conversion: near midnight that would
// shift the date across a day boundary.
func Today(now time.Time) Day {
	y, m, d := now.Date()
	return MakeDay(y, int(m), d)
}

// MakeDay builds a Day from year, month and day-of-month.
func MakeDay(year, month, day int) Day {
	return Day(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

// Parts splits the day into year, month and day-of-month.
func (d Day) Parts() (year, month, day int, err error) {
	if _, err = fmt.Sscanf(string(d), "%4d-%2d-%2d", &year, &month, &day); err != nil {
		return 0, 0, 0, fmt.Errorf("parse day %q: %w", d, err)
	}
	return year, month, day, nil
}

// Valid reports whether d is a well-formed, existing calendar date.
func (d Day) Valid() bool {
	if len(d) != 10 {
		return false
	}
	y, m, day, err := d.Parts()
	if err != nil {
		return false
	}
	if m < 1 || m > 12 || day < 1 {
		return false
	}
	return day <= lastDayOfMonth(y, m)
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool { return d < other }

// NextOccurrence advances a recurring date by one period. Monthly moves to
// the next calendar month, clamping to its last valid day when the original
// day-of-month does not exist there (Jan 31 -> Feb 28/29). Yearly keeps the
// same day and month, clamping Feb 29 outside leap years.
func NextOccurrence(d Day, r Recurrence) (Day, error) {
	y, m, day, err := d.Parts()
	if err != nil {
		return "", err
	}

	switch r {
	case RecurMonthly:
		m++
		if m > 12 {
			m = 1
			y++
		}
	case RecurYearly:
		y++
	default:
		return "", fmt.Errorf("recurrence %q has no next occurrence", r)
	}

	if last := lastDayOfMonth(y, m); day > last {
		day = last
	}
	return MakeDay(y, m, day), nil
}

// lastDayOfMonth uses the day-zero-of-next-month idiom.
func lastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
