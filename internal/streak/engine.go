// Package streak holds the daily streak state transitions: completions,
// inactivity resets, time left before a reset and milestone detection.
//
// Every function is pure. Calendar dates are always read in now.Location(),
// so callers pass time.Now() (host local time) in production and fixed zones
// in tests.
package streak

import (
	"time"

	"streak-keeper/internal/model"
)

// graceDays is how many calendar days after a completion the category
// survives before the inactivity reset fires. A completion on day D covers D
// and D+1; the reset fires from the midnight starting D+2.
const graceDays = 2

// AchievedToday reports whether the category already has a completion on now's date.
func AchievedToday(c model.Category, now time.Time) bool {
	return c.LastLogin != nil && SameDay(*c.LastLogin, now, now.Location())
}

// RecordCompletion logs today's achievement for c.
//
// A second completion on the same calendar date is a no-op. A completion on
// the day right after the last one extends the streak; anything else
// (including a last login in the future) restarts it at 1.
func RecordCompletion(c model.Category, now time.Time) (model.Category, []Event) {
	if AchievedToday(c, now) {
		return c, nil
	}

	prev := c.Streak
	if prev < 0 {
		prev = 0
	}

	next := 1
	if c.LastLogin != nil && DaysBetween(*c.LastLogin, now, now.Location()) == 1 {
		next = prev + 1
	}

	at := now
	c.Streak = next
	c.LastLogin = &at

	var events []Event
	if next > prev && IsMilestone(next) {
		events = append(events, MilestoneReached{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Days:         next,
		})
	}
	return c, events
}

// CheckInactivityReset zeroes c once its grace window has elapsed.
func CheckInactivityReset(c model.Category, now time.Time) (model.Category, []Event) {
	if c.LastLogin == nil {
		return c, nil
	}
	if DaysBetween(*c.LastLogin, now, now.Location()) < graceDays {
		return c, nil
	}

	event := ResetOccurred{
		CategoryID:     c.ID,
		CategoryName:   c.Name,
		PreviousStreak: c.Streak,
	}
	c.Streak = 0
	c.LastLogin = nil
	return c, []Event{event}
}

// TimeUntilReset returns how long c has left before CheckInactivityReset
// would zero it. ok is false when nothing is pending: the category was never
// logged or is already completed today. A zero duration means the reset is due.
func TimeUntilReset(c model.Category, now time.Time) (remaining time.Duration, ok bool) {
	if c.LastLogin == nil || AchievedToday(c, now) {
		return 0, false
	}

	y, m, d := c.LastLogin.In(now.Location()).Date()
	deadline := midnightOf(y, m, d+graceDays, now.Location())
	remaining = deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
