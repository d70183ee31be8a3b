package reminder

import (
	"strconv"
	"strings"
	"time"
)

// graceWindow is how long after a scheduled time a dose may still be marked
// on time before the sweep flags it missed.
const graceWindow = 60 * time.Second

// Classify decides whether an enabled, upcoming reminder should be flagged
// missed at the given instant. It is pure so the sweep's decision logic can
// be tested independently of the scheduler.
//
// A reminder is missed when today is one of its scheduled days and at least
// one of its times-of-day is more than the grace window in the past. The
// first overdue time wins; remaining times are not evaluated separately.
func Classify(r *Reminder, now time.Time) (missed bool) {
	if !r.Enabled || r.Status != StatusUpcoming {
		return false
	}
	if !r.ScheduledToday(now) {
		return false
	}

	for _, t := range r.Times {
		scheduled, ok := atTimeOfDay(t, now)
		if !ok {
			continue
		}
		if !now.Before(scheduled.Add(graceWindow)) {
			return true
		}
	}
	return false
}

// atTimeOfDay builds today's wall-clock instant for an HH:MM string.
func atTimeOfDay(hhmm string, now time.Time) (time.Time, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), true
}
