package reminders

import "time"

// recurringSchedule implements cron.Schedule for the every-N-days-at-hh:mm
// reminder recurrence.
type recurringSchedule struct {
	frequencyDays int
	hour          int
	minute        int
}

func (s recurringSchedule) Next(t time.Time) time.Time {
	return NextOccurrence(s.frequencyDays, s.hour, s.minute, t)
}

// oneShotSchedule fires exactly once at the given instant. After that the
// zero time tells cron the entry has no further activations.
type oneShotSchedule struct {
	at time.Time
}

func (s oneShotSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}
