package streak

import "time"

const day = 24 * time.Hour

// DaysBetween returns the number of calendar days from the date of `from` to the
// date of `to`, both read in loc. The result is negative when `from` is later.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	// Compare civil dates in UTC so DST transitions never shorten a day.
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / day)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DaysBetween(a, b, loc) == 0
}

// StartOfDay returns the first instant of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return midnightOf(y, m, d, t.Location())
}

// NextMidnight returns the first instant of the day after now's date. It is
// always strictly after now.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	next := midnightOf(y, m, d+1, now.Location())
	for !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next
}

// midnightOf returns the first instant of the civil date y-m-d in loc; out of
// range days are normalised like time.Date. Where the clock jumps forward at
// midnight, 00:00 does not exist and time.Date lands in the previous day, so
// step forward until the date matches.
func midnightOf(y int, m time.Month, d int, loc *time.Location) time.Time {
	ty, tm, td := time.Date(y, m, d, 12, 0, 0, 0, loc).Date()
	t := time.Date(ty, tm, td, 0, 0, 0, 0, loc)
	for {
		cy, cm, cd := t.Date()
		if cy == ty && cm == tm && cd == td {
			return t
		}
		t = t.Add(time.Hour)
	}
}
