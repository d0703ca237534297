package notify_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/munaimtahir/kwh/internal/billing"
	"github.com/munaimtahir/kwh/internal/notify"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseStats(window billing.Window) billing.CycleStats {
	latest := billing.Reading{ID: uuid.New(), Value: 120, RecordedAt: window.Start.AddDate(0, 0, 2)}
	return billing.CycleStats{
		MeterID: uuid.New(),
		Window:  window,
		Latest:  &latest,
	}
}

func TestBuildMessages_ThresholdCrossingSoon(t *testing.T) {
	now := day(2024, time.March, 25)
	stats := baseStats(billing.Window{Start: day(2024, time.March, 15), End: day(2024, time.April, 15)})
	stats.NextThreshold = &billing.ThresholdForecast{Threshold: 200, ETA: day(2024, time.March, 28)}

	messages := notify.BuildMessages(stats, now)

	if len(messages) != 1 {
		t.Fatalf("expected one message, got %v", messages)
	}
	if !strings.Contains(messages[0], "200") || !strings.Contains(messages[0], "2024-03-28") {
		t.Errorf("unexpected message: %q", messages[0])
	}
}

func TestBuildMessages_ThresholdCrossingFarOut(t *testing.T) {
	now := day(2024, time.March, 25)
	stats := baseStats(billing.Window{Start: day(2024, time.March, 15), End: day(2024, time.April, 15)})
	stats.NextThreshold = &billing.ThresholdForecast{Threshold: 200, ETA: day(2024, time.April, 10)}

	if messages := notify.BuildMessages(stats, now); len(messages) != 0 {
		t.Errorf("expected no messages for a crossing 16 days out, got %v", messages)
	}
}

func TestBuildMessages_ThresholdWindowBoundary(t *testing.T) {
	now := day(2024, time.March, 25)
	stats := baseStats(billing.Window{Start: day(2024, time.March, 15), End: day(2024, time.April, 15)})

	// Six days out warns, seven does not.
	stats.NextThreshold = &billing.ThresholdForecast{Threshold: 300, ETA: day(2024, time.March, 31)}
	if messages := notify.BuildMessages(stats, now); len(messages) != 1 {
		t.Errorf("expected warning six days out, got %v", messages)
	}

	stats.NextThreshold = &billing.ThresholdForecast{Threshold: 300, ETA: day(2024, time.April, 1)}
	if messages := notify.BuildMessages(stats, now); len(messages) != 0 {
		t.Errorf("expected no warning seven days out, got %v", messages)
	}
}

func TestBuildMessages_NoReadingNudge(t *testing.T) {
	stats := billing.CycleStats{
		MeterID: uuid.New(),
		Window:  billing.Window{Start: day(2024, time.March, 15), End: day(2024, time.April, 15)},
	}

	// Twelve days into the cycle without a reading: nudge.
	messages := notify.BuildMessages(stats, day(2024, time.March, 27))
	if len(messages) != 1 || !strings.Contains(messages[0], "no reading") {
		t.Fatalf("expected no-reading nudge, got %v", messages)
	}

	// Five days in: still quiet.
	if messages := notify.BuildMessages(stats, day(2024, time.March, 20)); len(messages) != 0 {
		t.Errorf("expected no nudge early in the cycle, got %v", messages)
	}
}

func TestBuildMessages_NothingToSay(t *testing.T) {
	now := day(2024, time.March, 25)
	stats := baseStats(billing.Window{Start: day(2024, time.March, 15), End: day(2024, time.April, 15)})

	if messages := notify.BuildMessages(stats, now); len(messages) != 0 {
		t.Errorf("expected no messages, got %v", messages)
	}
}
