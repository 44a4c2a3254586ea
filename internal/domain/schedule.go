package domain

import (
	"math/rand"
	"sort"
	"time"
)

// CheckTimes computes the UTC timestamps of today's prompts for one
// user. "Today" is the user's local calendar day derived from nowUTC
// and the whole-hour offset.
//
// When the window has at least as many minutes as prompts, minute
// offsets are drawn uniformly without replacement and sorted, so the
// prompts are distinct and chronological. A window too narrow for that
// falls back to deterministic even spacing; randomization of a couple
// of minutes is noise, not variety.
//
// The rand source is injected so tests can assert the distribution
// properties with a fixed seed.
func CheckTimes(rng *rand.Rand, nowUTC time.Time, tzOffset, startHour, endHour, count int) []time.Time {
	windowMinutes := (endHour - startHour) * 60

	var offsets []int
	if windowMinutes <= count {
		step := windowMinutes / count
		if step < 1 {
			step = 1
		}
		for i := 0; i < count; i++ {
			offsets = append(offsets, i*step)
		}
	} else {
		offsets = rng.Perm(windowMinutes)[:count]
		sort.Ints(offsets)
	}

	local := nowUTC.UTC().Add(time.Duration(tzOffset) * time.Hour)
	y, m, d := local.Date()

	times := make([]time.Time, 0, count)
	for _, off := range offsets {
		h := startHour + off/60
		mm := off % 60
		lt := time.Date(y, m, d, h, mm, 0, 0, time.UTC)
		times = append(times, lt.Add(-time.Duration(tzOffset)*time.Hour))
	}
	return times
}

// LocalDayBounds returns the UTC instants delimiting the user's current
// local calendar day [start, end).
func LocalDayBounds(nowUTC time.Time, tzOffset int) (time.Time, time.Time) {
	shift := time.Duration(tzOffset) * time.Hour
	local := nowUTC.UTC().Add(shift)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(-shift)
	return start, start.Add(24 * time.Hour)
}

// TimeOfDayBucket labels an hour of day the way the weekly digest
// groups entries: morning 6-11, afternoon 12-17, evening 18-22,
// night otherwise.
func TimeOfDayBucket(hour int) string {
	switch {
	case hour >= 6 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 17:
		return "afternoon"
	case hour >= 18 && hour <= 22:
		return "evening"
	default:
		return "night"
	}
}
