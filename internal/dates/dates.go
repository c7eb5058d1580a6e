// Package dates holds the calendar-day classification rules shared by deal
// filters, dashboard aggregation, and notifications. Every predicate is a
// pure function of (date, now); callers inject "now" so the rules stay
// testable and consistent across screens.
package dates

import "time"

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsOverdue reports whether d is strictly before the start of today.
// A nil date is never overdue.
func IsOverdue(d *time.Time, now time.Time) bool {
	if d == nil {
		return false
	}
	return StartOfDay(*d).Before(StartOfDay(now))
}

// IsWithinWeek reports whether d falls inside the Monday-Sunday week
// containing now, inclusive on both ends.
func IsWithinWeek(d *time.Time, now time.Time) bool {
	if d == nil {
		return false
	}
	monday := StartOfDay(now)
	offset := (int(monday.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	monday = monday.AddDate(0, 0, -offset)
	sunday := monday.AddDate(0, 0, 6)
	day := StartOfDay(*d)
	return !day.Before(monday) && !day.After(sunday)
}

// IsWithinNextDays reports whether d falls in [today, today+n], inclusive.
func IsWithinNextDays(d *time.Time, now time.Time, n int) bool {
	if d == nil || n < 0 {
		return false
	}
	today := StartOfDay(now)
	day := StartOfDay(*d)
	return !day.Before(today) && !day.After(today.AddDate(0, 0, n))
}

// IsWithinPastDays reports whether d falls in [today-n, today], inclusive.
func IsWithinPastDays(d *time.Time, now time.Time, n int) bool {
	if d == nil || n < 0 {
		return false
	}
	today := StartOfDay(now)
	day := StartOfDay(*d)
	return !day.After(today) && !day.Before(today.AddDate(0, 0, -n))
}

// AmountRange is a discrete amount bucket tag used by deal filters.
type AmountRange string

const (
	RangeAll      AmountRange = "all"
	RangeUnder500 AmountRange = "<500"
	Range500To1K  AmountRange = "500-1000"
	Range1KTo5K   AmountRange = "1000-5000"
	RangeOver5K   AmountRange = ">5000"
)

// Valid reports whether the tag is one of the known buckets.
func (r AmountRange) Valid() bool {
	switch r {
	case RangeAll, RangeUnder500, Range500To1K, Range1KTo5K, RangeOver5K:
		return true
	}
	return false
}

// Matches reports bucket membership for amount. A shared boundary belongs to
// the lower bucket: 500-1000 covers 500 <= x <= 1000 and 1000-5000 covers
// 1000 < x <= 5000, so every non-negative amount lands in exactly one bucket.
func (r AmountRange) Matches(amount float64) bool {
	switch r {
	case RangeAll:
		return true
	case RangeUnder500:
		return amount < 500
	case Range500To1K:
		return amount >= 500 && amount <= 1000
	case Range1KTo5K:
		return amount > 1000 && amount <= 5000
	case RangeOver5K:
		return amount > 5000
	}
	return false
}
