package httpapi

import (
	"time"

	"github.com/munaimtahir/kwh/internal/db"
	"github.com/munaimtahir/kwh/internal/service"
)

// Wire representations. Timestamps for readings are epoch milliseconds to
// match the CSV interchange format.

type meterJSON struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	ReminderEnabled       bool   `json:"reminder_enabled"`
	ReminderFrequencyDays int    `json:"reminder_frequency_days"`
	ReminderHour          int    `json:"reminder_hour"`
	ReminderMinute        int    `json:"reminder_minute"`
	BillingAnchorDay      int    `json:"billing_anchor_day"`
	Thresholds            string `json:"thresholds"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

type readingJSON struct {
	ID         string  `json:"id"`
	MeterID    string  `json:"meter_id"`
	Value      float64 `json:"value"`
	Notes      string  `json:"notes,omitempty"`
	RecordedAt int64   `json:"recorded_at"`
}

type overviewJSON struct {
	Meter         meterJSON    `json:"meter"`
	LatestReading *readingJSON `json:"latest_reading,omitempty"`
	Stats         interface{}  `json:"stats"`
}

type createMeterRequest struct {
	Name                  string `json:"name"`
	ReminderFrequencyDays int    `json:"reminder_frequency_days"`
	ReminderHour          int    `json:"reminder_hour"`
	ReminderMinute        int    `json:"reminder_minute"`
}

type addReadingRequest struct {
	Value      float64 `json:"value"`
	Notes      *string `json:"notes,omitempty"`
	RecordedAt int64   `json:"recorded_at,omitempty"`
}

type restoreReadingRequest struct {
	ID         string  `json:"id"`
	Value      float64 `json:"value"`
	Notes      *string `json:"notes,omitempty"`
	RecordedAt int64   `json:"recorded_at"`
}

type settingsRequest struct {
	BillingAnchorDay      int    `json:"billing_anchor_day"`
	Thresholds            string `json:"thresholds"`
	ReminderFrequencyDays int    `json:"reminder_frequency_days"`
}

type reminderRequest struct {
	Enabled       bool `json:"enabled"`
	FrequencyDays int  `json:"frequency_days"`
	Hour          int  `json:"hour"`
	Minute        int  `json:"minute"`
}

type snoozeRequest struct {
	Minutes int `json:"minutes,omitempty"`
}

type addReadingResponse struct {
	Reading readingJSON `json:"reading"`
	Warning string      `json:"warning,omitempty"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

func toMeterJSON(m *db.Meter) meterJSON {
	return meterJSON{
		ID:                    m.ID.String(),
		Name:                  m.Name,
		ReminderEnabled:       m.ReminderEnabled,
		ReminderFrequencyDays: m.ReminderFrequencyDays,
		ReminderHour:          m.ReminderHour,
		ReminderMinute:        m.ReminderMinute,
		BillingAnchorDay:      m.BillingAnchorDay,
		Thresholds:            m.ThresholdsCSV,
		CreatedAt:             m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             m.UpdatedAt.Format(time.RFC3339),
	}
}

func toReadingJSON(r *db.Reading) readingJSON {
	out := readingJSON{
		ID:         r.ID.String(),
		MeterID:    r.MeterID.String(),
		Value:      r.Value,
		RecordedAt: r.RecordedAt.UnixMilli(),
	}
	if r.Notes != nil {
		out.Notes = *r.Notes
	}
	return out
}

func toOverviewJSON(o *service.MeterOverview) overviewJSON {
	out := overviewJSON{
		Meter: toMeterJSON(&o.Meter),
		Stats: o.Stats,
	}
	if o.LatestReading != nil {
		reading := toReadingJSON(o.LatestReading)
		out.LatestReading = &reading
	}
	return out
}
