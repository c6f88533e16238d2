package notify

import (
	"time"

	"github.com/beaconlabs/beacon/internal/store"
)

// nextFire computes the fire time after base for a repeat type, or nil when
// the row does not recur. All arithmetic is on absolute instants; the stored
// timezone is a display label only.
func nextFire(base time.Time, repeat store.RepeatType, workingDays map[time.Weekday]bool) *time.Time {
	var next time.Time
	switch repeat {
	case store.RepeatDaily:
		next = base.AddDate(0, 0, 1)
	case store.RepeatWeekly:
		next = base.AddDate(0, 0, 7)
	case store.RepeatMonthly:
		next = addMonthClamped(base)
	case store.RepeatWorkingDays:
		next = nextWorkingDay(base, workingDays)
	default:
		return nil
	}
	return &next
}

// addMonthClamped advances one month, clamping to the last valid day when the
// target month is shorter (Jan 31 -> Feb 28/29).
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// nextWorkingDay returns the soonest day strictly after base whose weekday is
// in the set, preserving base's clock time. An empty set falls back to the
// next day.
func nextWorkingDay(base time.Time, workingDays map[time.Weekday]bool) time.Time {
	for offset := 1; offset <= 7; offset++ {
		candidate := base.AddDate(0, 0, offset)
		if workingDays[candidate.Weekday()] {
			return candidate
		}
	}
	return base.AddDate(0, 0, 1)
}

// nextWorkingDayAt returns the soonest calendar day strictly after today with
// a weekday in the set, at the given clock time. Used when a working-days row
// comes due on a non-working day: the fire is pushed, not delivered.
func nextWorkingDayAt(today time.Time, hour, minute int, workingDays map[time.Weekday]bool) time.Time {
	day := time.Date(today.Year(), today.Month(), today.Day(), hour, minute, 0, 0, today.Location())
	for offset := 1; offset <= 7; offset++ {
		candidate := day.AddDate(0, 0, offset)
		if workingDays[candidate.Weekday()] {
			return candidate
		}
	}
	return day.AddDate(0, 0, 1)
}

// weekdaySet converts the stored weekday numbers (Sunday=0) into a lookup set.
func weekdaySet(days []int) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if d >= 0 && d <= 6 {
			set[time.Weekday(d)] = true
		}
	}
	return set
}
