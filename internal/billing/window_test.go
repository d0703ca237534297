package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/munaimtahir/kwh/internal/billing"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrentWindow_AnchorWithinCurrentMonth(t *testing.T) {
	now := time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

	window, err := billing.CurrentWindow(15, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !window.Start.Equal(date(2024, time.May, 15)) {
		t.Errorf("expected start 2024-05-15, got %v", window.Start)
	}
	if !window.End.Equal(date(2024, time.June, 15)) {
		t.Errorf("expected end 2024-06-15, got %v", window.End)
	}
}

func TestCurrentWindow_AnchorBeyondMonthLengthFallsBack(t *testing.T) {
	now := date(2023, time.March, 30)

	window, err := billing.CurrentWindow(31, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !window.Start.Equal(date(2023, time.February, 28)) {
		t.Errorf("expected start 2023-02-28, got %v", window.Start)
	}
	if !window.End.Equal(date(2023, time.March, 28)) {
		t.Errorf("expected end 2023-03-28, got %v", window.End)
	}
}

func TestCurrentWindow_FebruaryClamping(t *testing.T) {
	tests := []struct {
		name      string
		anchorDay int
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "anchor 29 in non-leap february",
			anchorDay: 29,
			now:       date(2023, time.February, 20),
			wantStart: date(2023, time.January, 29),
			wantEnd:   date(2023, time.February, 28),
		},
		{
			name:      "anchor 30 in non-leap february",
			anchorDay: 30,
			now:       date(2023, time.February, 20),
			wantStart: date(2023, time.January, 30),
			wantEnd:   date(2023, time.February, 28),
		},
		{
			name:      "anchor 31 in non-leap february",
			anchorDay: 31,
			now:       date(2023, time.February, 20),
			wantStart: date(2023, time.January, 31),
			wantEnd:   date(2023, time.February, 28),
		},
		{
			name:      "leap year preserves february 29",
			anchorDay: 31,
			now:       date(2024, time.February, 20),
			wantStart: date(2024, time.January, 31),
			wantEnd:   date(2024, time.February, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := billing.CurrentWindow(tt.anchorDay, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !window.Start.Equal(tt.wantStart) {
				t.Errorf("expected start %v, got %v", tt.wantStart, window.Start)
			}
			if !window.End.Equal(tt.wantEnd) {
				t.Errorf("expected end %v, got %v", tt.wantEnd, window.End)
			}
		})
	}
}

func TestCurrentWindow_InvalidAnchorRejected(t *testing.T) {
	now := date(2024, time.May, 20)

	for _, anchorDay := range []int{0, -1, 32} {
		_, err := billing.CurrentWindow(anchorDay, now)
		if !errors.Is(err, billing.ErrInvalidAnchorDay) {
			t.Errorf("anchor %d: expected ErrInvalidAnchorDay, got %v", anchorDay, err)
		}
	}
}

func TestCurrentWindow_AlwaysContainsToday(t *testing.T) {
	nows := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.February, 29),
		date(2023, time.February, 28),
		date(2024, time.July, 31),
		date(2024, time.December, 31),
		time.Date(2024, time.March, 15, 23, 59, 59, 0, time.UTC),
	}

	for _, now := range nows {
		for anchorDay := 1; anchorDay <= 31; anchorDay++ {
			window, err := billing.CurrentWindow(anchorDay, now)
			if err != nil {
				t.Fatalf("anchor %d at %v: unexpected error: %v", anchorDay, now, err)
			}
			today := date(now.Year(), now.Month(), now.Day())
			if !window.Contains(today) {
				t.Errorf("anchor %d at %v: today %v outside window [%v, %v)",
					anchorDay, now, today, window.Start, window.End)
			}
			if !window.End.After(window.Start) {
				t.Errorf("anchor %d at %v: end %v not after start %v",
					anchorDay, now, window.End, window.Start)
			}
		}
	}
}
