package reminders

import "time"

// NextOccurrence computes the next time a recurring reminder should fire:
// today at hour:minute in now's zone, advanced in frequencyDays steps until
// strictly after now plus one minute. The frequency is coerced to at least
// one day, so the loop terminates after at most one step beyond the initial
// candidate.
func NextOccurrence(frequencyDays, hour, minute int, now time.Time) time.Time {
	step := frequencyDays
	if step < 1 {
		step = 1
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	minNext := now.Add(time.Minute)
	for !next.After(minNext) {
		next = next.AddDate(0, 0, step)
	}
	return next
}

// NextDelay returns the duration until the next reminder occurrence. The
// result is never negative.
func NextDelay(frequencyDays, hour, minute int, now time.Time) time.Duration {
	delay := NextOccurrence(frequencyDays, hour, minute, now).Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}
