package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// June 16 2025 is a Monday.
func monday(hour, min, sec int) time.Time {
	return time.Date(2025, 6, 16, hour, min, sec, 0, time.UTC)
}

func upcoming(times ...string) *Reminder {
	return &Reminder{
		ID:           "r1",
		MedicineName: "Aspirin",
		EveryDay:     true,
		Times:        times,
		Status:       StatusUpcoming,
		Enabled:      true,
	}
}

func TestClassify_MissedAfterGraceWindow(t *testing.T) {
	r := upcoming("08:00")

	// 61 seconds past the scheduled time.
	assert.True(t, Classify(r, monday(8, 1, 1)))
}

func TestClassify_NotMissedInsideGraceWindow(t *testing.T) {
	r := upcoming("08:00")

	assert.False(t, Classify(r, monday(8, 0, 30)))
	assert.False(t, Classify(r, monday(7, 59, 0)))
}

func TestClassify_GraceBoundaryIsExclusive(t *testing.T) {
	r := upcoming("08:00")

	// Exactly 60 seconds past is already missed.
	assert.True(t, Classify(r, monday(8, 1, 0)))
	assert.False(t, Classify(r, monday(8, 0, 59)))
}

func TestClassify_FirstOverdueTimeWins(t *testing.T) {
	r := upcoming("08:00", "20:00")

	assert.True(t, Classify(r, monday(12, 0, 0)))
}

func TestClassify_DisabledNeverMissed(t *testing.T) {
	r := upcoming("08:00")
	r.Enabled = false

	assert.False(t, Classify(r, monday(23, 0, 0)))
}

func TestClassify_OnlyUpcomingIsEvaluated(t *testing.T) {
	r := upcoming("08:00")
	r.Status = StatusCompleted
	assert.False(t, Classify(r, monday(23, 0, 0)))

	r.Status = StatusMissed
	assert.False(t, Classify(r, monday(23, 0, 0)))
}

func TestClassify_WeekdayScheduling(t *testing.T) {
	r := upcoming("08:00")
	r.EveryDay = false
	r.Weekdays = []string{"Tue", "Thu"}

	// Monday is not a scheduled day.
	assert.False(t, Classify(r, monday(23, 0, 0)))

	tuesday := monday(23, 0, 0).AddDate(0, 0, 1)
	assert.True(t, Classify(r, tuesday))
}

func TestClassify_MalformedTimeIsSkipped(t *testing.T) {
	r := upcoming("not-a-time", "25:00", "08:61")

	assert.False(t, Classify(r, monday(23, 0, 0)))
}

func TestAtTimeOfDay(t *testing.T) {
	now := monday(12, 0, 0)

	at, ok := atTimeOfDay("08:30", now)
	assert.True(t, ok)
	assert.Equal(t, monday(8, 30, 0), at)

	_, ok = atTimeOfDay("8", now)
	assert.False(t, ok)
	_, ok = atTimeOfDay("24:00", now)
	assert.False(t, ok)
	_, ok = atTimeOfDay("12:60", now)
	assert.False(t, ok)
}

func TestScheduledToday(t *testing.T) {
	r := &Reminder{EveryDay: true}
	assert.True(t, r.ScheduledToday(monday(8, 0, 0)))

	r = &Reminder{Weekdays: []string{"Mon"}}
	assert.True(t, r.ScheduledToday(monday(8, 0, 0)))
	assert.False(t, r.ScheduledToday(monday(8, 0, 0).AddDate(0, 0, 1)))
}

func TestCanTransition(t *testing.T) {
	r := &Reminder{Status: StatusUpcoming}
	assert.True(t, r.CanTransition(StatusMissed))
	assert.True(t, r.CanTransition(StatusCompleted))
	assert.False(t, r.CanTransition(StatusUpcoming))

	r.Status = StatusCompleted
	assert.True(t, r.CanTransition(StatusUpcoming))
	assert.False(t, r.CanTransition(StatusMissed))

	r.Status = StatusMissed
	assert.True(t, r.CanTransition(StatusUpcoming))
	assert.False(t, r.CanTransition(StatusCompleted))
}
