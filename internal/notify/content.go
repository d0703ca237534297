package notify

import (
	"fmt"
	"time"

	"github.com/munaimtahir/kwh/internal/billing"
)

// Literal policy thresholds for in-notification nudges.
const (
	// thresholdWarningWindowDays is how close a forecast crossing must be
	// before the notification warns about it.
	thresholdWarningWindowDays = 7

	// noReadingNudgeDays is how far into a cycle without any reading the
	// notification starts nudging for one.
	noReadingNudgeDays = 10
)

// BuildMessages produces the extra content lines for a reminder notification
// from the meter's current cycle statistics. An empty slice means the
// reminder carries no nudges beyond the reminder itself.
func BuildMessages(stats billing.CycleStats, now time.Time) []string {
	today := dateOf(now)
	var messages []string

	if forecast := stats.NextThreshold; forecast != nil {
		daysUntil := wholeDaysBetween(today, dateOf(forecast.ETA))
		if daysUntil >= 0 && daysUntil < thresholdWarningWindowDays {
			messages = append(messages, fmt.Sprintf(
				"usage is on track to pass %d units around %s",
				forecast.Threshold, forecast.ETA.Format("2006-01-02"),
			))
		}
	}

	if stats.Latest == nil {
		cycleStart := dateOf(stats.Window.Start.In(now.Location()))
		if wholeDaysBetween(cycleStart, today) > noReadingNudgeDays {
			messages = append(messages, "no reading recorded yet this cycle")
		}
	}

	return messages
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func wholeDaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
