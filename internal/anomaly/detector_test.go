package anomaly_test

import (
	"strings"
	"testing"

	"github.com/munaimtahir/kwh/internal/anomaly"
)

func TestCheck_DecreaseFlagged(t *testing.T) {
	detector := anomaly.NewDetector(3.0, 5)

	flagged, reason := detector.Check(95, []float64{100, 98, 96})

	if !flagged {
		t.Fatal("expected a decreasing value to be flagged")
	}
	if !strings.Contains(reason, "below the previous reading") {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestCheck_SpikeFlagged(t *testing.T) {
	detector := anomaly.NewDetector(3.0, 3)

	flagged, reason := detector.Check(1000, []float64{105, 103, 100})

	if !flagged {
		t.Fatal("expected a spike to be flagged")
	}
	if !strings.Contains(reason, "spike") {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestCheck_NormalGrowthAccepted(t *testing.T) {
	detector := anomaly.NewDetector(3.0, 3)

	if flagged, reason := detector.Check(110, []float64{105, 103, 100}); flagged {
		t.Errorf("expected normal growth to pass, got %q", reason)
	}
}

func TestCheck_TooFewValuesForSpikeDetection(t *testing.T) {
	detector := anomaly.NewDetector(3.0, 5)

	// Only two recent values: spike detection stays off, and the value grows,
	// so nothing is flagged even though it is far above the average.
	if flagged, reason := detector.Check(1000, []float64{105, 100}); flagged {
		t.Errorf("expected no flag below the data point minimum, got %q", reason)
	}
}

func TestCheck_NoHistory(t *testing.T) {
	detector := anomaly.NewDetector(3.0, 5)

	if flagged, reason := detector.Check(100, nil); flagged {
		t.Errorf("expected first reading to pass, got %q", reason)
	}
}
