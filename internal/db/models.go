package db

import (
	"time"

	"github.com/google/uuid"
)

// Default meter settings applied when a meter is created.
const (
	DefaultReminderFrequencyDays = 30
	DefaultReminderHour          = 9
	DefaultReminderMinute        = 0
	DefaultBillingAnchorDay      = 1
	DefaultThresholdsCSV         = "200,300"
)

// Meter represents a registered utility meter in the database.
type Meter struct {
	ID                    uuid.UUID
	Name                  string
	ReminderEnabled       bool
	ReminderFrequencyDays int
	ReminderHour          int
	ReminderMinute        int
	BillingAnchorDay      int
	ThresholdsCSV         string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Reading represents a single recorded meter reading. Readings are immutable
// once created except for deletion; restoring a deleted reading re-inserts
// the identical record.
type Reading struct {
	ID         uuid.UUID
	MeterID    uuid.UUID
	Value      float64
	Notes      *string
	RecordedAt time.Time
	CreatedAt  time.Time
}
