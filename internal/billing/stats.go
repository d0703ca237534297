package billing

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/munaimtahir/kwh/internal/clock"
)

const millisPerDay = 86_400_000.0

// Reading is the snapshot of a meter reading used for cycle calculations.
type Reading struct {
	ID         uuid.UUID `json:"id"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	Notes      string    `json:"notes,omitempty"`
}

// ThresholdForecast is the predicted local date at which a configured usage
// threshold will be crossed, assuming the current consumption rate holds.
type ThresholdForecast struct {
	Threshold int       `json:"threshold"`
	ETA       time.Time `json:"eta"`
}

// CycleStats aggregates usage statistics for a meter's current billing cycle.
//
// UsedUnits is only meaningful when both a baseline and an in-window latest
// reading exist; absent either, usage is zero and no projection or threshold
// forecast is produced. A negative UsedUnits is possible when a later reading
// is smaller than the baseline (meter rollover or entry error) and is passed
// through unchanged.
type CycleStats struct {
	MeterID        uuid.UUID          `json:"meter_id"`
	Window         Window             `json:"window"`
	Baseline       *Reading           `json:"baseline,omitempty"`
	Latest         *Reading           `json:"latest,omitempty"`
	UsedUnits      float64            `json:"used_units"`
	RatePerDay     float64            `json:"rate_per_day"`
	ProjectedUnits float64            `json:"projected_units"`
	NextThreshold  *ThresholdForecast `json:"next_threshold,omitempty"`
}

// Calculator computes billing windows and cycle statistics. It is a pure,
// synchronous calculator over immutable inputs; the only ambient input is the
// injected clock.
type Calculator struct {
	clock clock.Clock
}

// NewCalculator creates a Calculator using the given clock.
func NewCalculator(c clock.Clock) *Calculator {
	return &Calculator{clock: c}
}

// CurrentWindow resolves the active billing window for the anchor day at the
// calculator's current instant.
func (c *Calculator) CurrentWindow(anchorDay int) (Window, error) {
	return CurrentWindow(anchorDay, c.clock.Now())
}

// Compute resolves the current window for the meter and derives its cycle
// statistics from the given readings.
func (c *Calculator) Compute(meterID uuid.UUID, anchorDay int, thresholdsCsv string, readings []Reading) (CycleStats, error) {
	window, err := c.CurrentWindow(anchorDay)
	if err != nil {
		return CycleStats{}, err
	}
	return c.ComputeInWindow(meterID, thresholdsCsv, window, readings), nil
}

// ComputeInWindow derives cycle statistics for an already-resolved window.
//
// The baseline is the earliest reading inside the window, falling back to the
// latest reading strictly before the window (carry-over from the previous
// cycle). The latest reading must fall inside the window.
func (c *Calculator) ComputeInWindow(meterID uuid.UUID, thresholdsCsv string, window Window, readings []Reading) CycleStats {
	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	var baseline, latest, carry *Reading
	for i := range sorted {
		r := &sorted[i]
		switch {
		case r.RecordedAt.Before(window.Start):
			carry = r
		case r.RecordedAt.Before(window.End):
			if baseline == nil {
				baseline = r
			}
			latest = r
		}
	}
	return c.ComputeResolved(meterID, thresholdsCsv, window, baseline, latest, carry)
}

// ComputeResolved derives cycle statistics from already-resolved candidate
// readings: the earliest and latest in-window readings and the latest reading
// before the window. Callers that query storage for those three directly
// (instead of loading every reading) use this entry point.
func (c *Calculator) ComputeResolved(meterID uuid.UUID, thresholdsCsv string, window Window, baseline, latest, carry *Reading) CycleStats {
	if baseline == nil {
		baseline = carry
	}

	stats := CycleStats{
		MeterID:  meterID,
		Window:   window,
		Baseline: baseline,
		Latest:   latest,
	}

	if baseline != nil && latest != nil {
		stats.UsedUnits = latest.Value - baseline.Value
		elapsed := c.elapsedDays(window)
		if elapsed > 0 {
			stats.RatePerDay = stats.UsedUnits / elapsed
		}
		stats.ProjectedUnits = math.Round(stats.RatePerDay * cycleLengthDays(window))
	}

	stats.NextThreshold = c.nextThreshold(thresholdsCsv, stats.UsedUnits, stats.RatePerDay, window)
	return stats
}

// elapsedDays returns the fractional days elapsed since the window start,
// capped at the window end and floored at one day. The floor avoids division
// by zero and absurd rates on the cycle's first day.
func (c *Calculator) elapsedDays(window Window) float64 {
	now := c.clock.Now()
	if last := window.End.Add(-time.Millisecond); now.After(last) {
		now = last
	}
	days := float64(now.Sub(window.Start).Milliseconds()) / millisPerDay
	if days < 1.0 {
		return 1.0
	}
	return days
}

func cycleLengthDays(window Window) float64 {
	return float64(window.End.Sub(window.Start).Milliseconds()) / millisPerDay
}

// nextThreshold finds the smallest configured threshold still ahead of the
// current usage whose projected crossing date falls strictly inside the
// current cycle. A non-positive rate yields no forecast.
func (c *Calculator) nextThreshold(thresholdsCsv string, usedUnits, rate float64, window Window) *ThresholdForecast {
	if rate <= 0 {
		return nil
	}
	thresholds := ParseThresholds(thresholdsCsv)
	if len(thresholds) == 0 {
		return nil
	}

	now := c.clock.Now()
	today := midnight(now)
	endDate := midnight(window.End.In(now.Location()))

	for _, threshold := range thresholds {
		if float64(threshold) <= usedUnits {
			continue
		}
		daysUntil := math.Ceil((float64(threshold) - usedUnits) / rate)
		if math.IsNaN(daysUntil) || math.IsInf(daysUntil, 0) {
			continue
		}
		eta := today.AddDate(0, 0, int(daysUntil))
		if eta.Before(endDate) {
			return &ThresholdForecast{Threshold: threshold, ETA: eta}
		}
	}
	return nil
}
