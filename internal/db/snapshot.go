package db

import "github.com/munaimtahir/kwh/internal/billing"

// Snapshot converts a stored reading into the immutable snapshot consumed by
// the billing calculator.
func (r Reading) Snapshot() billing.Reading {
	snapshot := billing.Reading{
		ID:         r.ID,
		Value:      r.Value,
		RecordedAt: r.RecordedAt,
	}
	if r.Notes != nil {
		snapshot.Notes = *r.Notes
	}
	return snapshot
}

// Snapshots converts a slice of stored readings.
func Snapshots(readings []Reading) []billing.Reading {
	out := make([]billing.Reading, len(readings))
	for i, r := range readings {
		out[i] = r.Snapshot()
	}
	return out
}
