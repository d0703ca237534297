package anomaly

import (
	"fmt"
)

// Detector flags suspicious meter readings against recent history. Flagged
// readings are still accepted; the reason is surfaced to the caller so an
// entry error can be corrected with a delete-and-retry.
type Detector struct {
	spikeThreshold            float64
	minDataPointsForDetection int
}

// NewDetector creates a detector. A reading more than spikeThreshold times
// the rolling average of recent values is flagged as a spike once at least
// minDataPointsForDetection values exist.
func NewDetector(spikeThreshold float64, minDataPointsForDetection int) *Detector {
	return &Detector{
		spikeThreshold:            spikeThreshold,
		minDataPointsForDetection: minDataPointsForDetection,
	}
}

// Check inspects a new reading value against recent values, newest first.
// It returns whether the value looks anomalous and a human-readable reason.
func (d *Detector) Check(value float64, recentValues []float64) (bool, string) {
	// Cumulative meters should never decrease outside a rollover.
	if len(recentValues) > 0 && value < recentValues[0] {
		return true, fmt.Sprintf("value %.2f is below the previous reading %.2f (meter reset or entry error)",
			value, recentValues[0])
	}

	if len(recentValues) < d.minDataPointsForDetection {
		return false, ""
	}

	sum := 0.0
	for _, v := range recentValues {
		sum += v
	}
	average := sum / float64(len(recentValues))

	if average > 0 && value > d.spikeThreshold*average {
		return true, fmt.Sprintf("sudden spike: value %.2f exceeds %.1fx rolling average %.2f",
			value, d.spikeThreshold, average)
	}

	return false, ""
}
