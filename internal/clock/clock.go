package clock

import "time"

// Clock provides the current wall-clock time. Injecting it keeps the
// billing calculations deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System returns a Clock backed by time.Now.
func System() Clock {
	return systemClock{}
}

type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time {
	return f.t
}

// Fixed returns a Clock frozen at the given instant. The instant's location
// is used as the local zone for date calculations.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}
