package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/anomaly"
	"github.com/munaimtahir/kwh/internal/billing"
	"github.com/munaimtahir/kwh/internal/clock"
	"github.com/munaimtahir/kwh/internal/db"
)

// Validation errors surfaced to callers.
var (
	ErrInvalidReadingValue = errors.New("reading value must be positive")
	ErrEmptyMeterName      = errors.New("meter name must not be empty")
)

// Store is the persistence surface the service depends on.
type Store interface {
	InsertMeter(ctx context.Context, meter *db.Meter) error
	GetMeter(ctx context.Context, meterID uuid.UUID) (*db.Meter, error)
	ListMeters(ctx context.Context) ([]db.Meter, error)
	UpdateMeter(ctx context.Context, meter *db.Meter) error
	DeleteMeter(ctx context.Context, meterID uuid.UUID) error

	InsertReading(ctx context.Context, reading *db.Reading) error
	InsertReadings(ctx context.Context, readings []db.Reading) error
	GetReading(ctx context.Context, readingID uuid.UUID) (*db.Reading, error)
	DeleteReading(ctx context.Context, readingID uuid.UUID) error
	ListReadings(ctx context.Context, meterID uuid.UUID) ([]db.Reading, error)
	LatestReading(ctx context.Context, meterID uuid.UUID) (*db.Reading, error)
	RecentValues(ctx context.Context, meterID uuid.UUID, limit int) ([]float64, error)

	EarliestInWindow(ctx context.Context, meterID uuid.UUID, start, end time.Time) (*db.Reading, error)
	LatestInWindow(ctx context.Context, meterID uuid.UUID, start, end time.Time) (*db.Reading, error)
	LatestBefore(ctx context.Context, meterID uuid.UUID, before time.Time) (*db.Reading, error)
}

// ReminderScheduler manages the per-meter reminder entries.
type ReminderScheduler interface {
	Enable(meter *db.Meter)
	Disable(meterID uuid.UUID)
	Snooze(meterID uuid.UUID, delay time.Duration)
}

// StatsCache caches derived cycle statistics. A nil cache disables caching.
type StatsCache interface {
	Get(ctx context.Context, meterID uuid.UUID) (*billing.CycleStats, error)
	Set(ctx context.Context, stats billing.CycleStats) error
	Invalidate(ctx context.Context, meterID uuid.UUID) error
}

// MeterOverview pairs a meter with its latest reading and current cycle
// statistics, the shape list consumers want.
type MeterOverview struct {
	Meter         db.Meter           `json:"meter"`
	LatestReading *db.Reading        `json:"latest_reading,omitempty"`
	Stats         billing.CycleStats `json:"stats"`
}

// AddReadingResult is the outcome of recording a reading. Warning is
// non-empty when the value looks suspicious against recent history; the
// reading is stored regardless.
type AddReadingResult struct {
	Reading *db.Reading `json:"reading"`
	Warning string      `json:"warning,omitempty"`
}

// MeterService owns meters, readings and the derived cycle statistics, and
// keeps the reminder scheduler in sync with settings changes.
type MeterService struct {
	store     Store
	calc      *billing.Calculator
	scheduler ReminderScheduler
	cache     StatsCache
	detector  *anomaly.Detector
	clock     clock.Clock
	snooze    time.Duration
	logger    *zap.Logger
}

// NewMeterService wires a meter service. cache may be nil to disable the
// stats cache.
func NewMeterService(
	store Store,
	calc *billing.Calculator,
	scheduler ReminderScheduler,
	cache StatsCache,
	detector *anomaly.Detector,
	clk clock.Clock,
	snooze time.Duration,
	logger *zap.Logger,
) *MeterService {
	return &MeterService{
		store:     store,
		calc:      calc,
		scheduler: scheduler,
		cache:     cache,
		detector:  detector,
		clock:     clk,
		snooze:    snooze,
		logger:    logger,
	}
}

// CreateMeter registers a new meter with default billing settings. Reminders
// start disabled.
func (s *MeterService) CreateMeter(ctx context.Context, name string, frequencyDays, hour, minute int) (*db.Meter, error) {
	if name == "" {
		return nil, ErrEmptyMeterName
	}
	meter := &db.Meter{
		ID:                    uuid.New(),
		Name:                  name,
		ReminderEnabled:       false,
		ReminderFrequencyDays: coerceFrequency(frequencyDays),
		ReminderHour:          hour,
		ReminderMinute:        minute,
		BillingAnchorDay:      db.DefaultBillingAnchorDay,
		ThresholdsCSV:         db.DefaultThresholdsCSV,
	}
	if err := s.store.InsertMeter(ctx, meter); err != nil {
		return nil, err
	}
	s.logger.Info("meter created",
		zap.String("meter_id", meter.ID.String()),
		zap.String("name", meter.Name),
	)
	return meter, nil
}

// GetMeter fetches a meter by id.
func (s *MeterService) GetMeter(ctx context.Context, meterID uuid.UUID) (*db.Meter, error) {
	return s.store.GetMeter(ctx, meterID)
}

// DeleteMeter removes a meter and all its readings, and cancels its reminder.
func (s *MeterService) DeleteMeter(ctx context.Context, meterID uuid.UUID) error {
	if err := s.store.DeleteMeter(ctx, meterID); err != nil {
		return err
	}
	s.scheduler.Disable(meterID)
	s.invalidate(ctx, meterID)
	s.logger.Info("meter deleted", zap.String("meter_id", meterID.String()))
	return nil
}

// AddReading records a new reading. Values must be strictly positive;
// suspicious values are accepted but flagged in the result.
func (s *MeterService) AddReading(ctx context.Context, meterID uuid.UUID, value float64, notes *string, recordedAt time.Time) (*AddReadingResult, error) {
	if value <= 0 {
		return nil, ErrInvalidReadingValue
	}
	if _, err := s.store.GetMeter(ctx, meterID); err != nil {
		return nil, err
	}

	result := &AddReadingResult{}
	recent, err := s.store.RecentValues(ctx, meterID, 10)
	if err != nil {
		s.logger.Warn("failed to load recent values for sanity check",
			zap.Error(err),
			zap.String("meter_id", meterID.String()),
		)
	} else if suspect, reason := s.detector.Check(value, recent); suspect {
		result.Warning = reason
		s.logger.Warn("suspicious reading accepted",
			zap.String("meter_id", meterID.String()),
			zap.Float64("value", value),
			zap.String("reason", reason),
		)
	}

	reading := &db.Reading{
		ID:         uuid.New(),
		MeterID:    meterID,
		Value:      value,
		Notes:      notes,
		RecordedAt: recordedAt,
	}
	if err := s.store.InsertReading(ctx, reading); err != nil {
		return nil, err
	}
	s.invalidate(ctx, meterID)
	result.Reading = reading
	return result, nil
}

// Readings lists a meter's readings, newest first.
func (s *MeterService) Readings(ctx context.Context, meterID uuid.UUID) ([]db.Reading, error) {
	return s.store.ListReadings(ctx, meterID)
}

// DeleteReading deletes a reading and returns the deleted record so the
// caller can offer an undo.
func (s *MeterService) DeleteReading(ctx context.Context, readingID uuid.UUID) (*db.Reading, error) {
	reading, err := s.store.GetReading(ctx, readingID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteReading(ctx, readingID); err != nil {
		return nil, err
	}
	s.invalidate(ctx, reading.MeterID)
	return reading, nil
}

// RestoreReading re-inserts a previously deleted reading unchanged (undo).
func (s *MeterService) RestoreReading(ctx context.Context, reading db.Reading) error {
	if err := s.store.InsertReading(ctx, &reading); err != nil {
		return err
	}
	s.invalidate(ctx, reading.MeterID)
	return nil
}

// UpdateMeterSettings applies billing settings edits. The anchor day is
// clamped into [1,31], thresholds are canonicalized and the reminder
// frequency coerced to at least one day. An enabled reminder is rescheduled
// to pick up the new frequency.
func (s *MeterService) UpdateMeterSettings(ctx context.Context, meterID uuid.UUID, anchorDay int, thresholdsCsv string, frequencyDays int) (*db.Meter, error) {
	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}

	meter.BillingAnchorDay = clampAnchor(anchorDay)
	meter.ThresholdsCSV = billing.SanitizeThresholds(thresholdsCsv)
	meter.ReminderFrequencyDays = coerceFrequency(frequencyDays)

	if err := s.store.UpdateMeter(ctx, meter); err != nil {
		return nil, err
	}
	if meter.ReminderEnabled {
		s.scheduler.Enable(meter)
	}
	s.invalidate(ctx, meterID)
	return meter, nil
}

// UpdateReminderConfig enables or disables the meter's reminder and applies
// the new recurrence.
func (s *MeterService) UpdateReminderConfig(ctx context.Context, meterID uuid.UUID, enabled bool, frequencyDays, hour, minute int) (*db.Meter, error) {
	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}

	meter.ReminderEnabled = enabled
	meter.ReminderFrequencyDays = coerceFrequency(frequencyDays)
	meter.ReminderHour = hour
	meter.ReminderMinute = minute

	if err := s.store.UpdateMeter(ctx, meter); err != nil {
		return nil, err
	}
	if enabled {
		s.scheduler.Enable(meter)
	} else {
		s.scheduler.Disable(meterID)
	}
	return meter, nil
}

// Snooze postpones the meter's next reminder. A non-positive duration uses
// the configured default.
func (s *MeterService) Snooze(ctx context.Context, meterID uuid.UUID, delay time.Duration) error {
	if _, err := s.store.GetMeter(ctx, meterID); err != nil {
		return err
	}
	if delay <= 0 {
		delay = s.snooze
	}
	s.scheduler.Snooze(meterID, delay)
	return nil
}

// CycleStats computes the meter's current cycle statistics, using the cache
// when a fresh snapshot is available.
func (s *MeterService) CycleStats(ctx context.Context, meterID uuid.UUID) (*billing.CycleStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, meterID)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}
	window, err := s.calc.CurrentWindow(meter.BillingAnchorDay)
	if err != nil {
		return nil, err
	}

	earliest, err := s.store.EarliestInWindow(ctx, meterID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestInWindow(ctx, meterID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	carry, err := s.store.LatestBefore(ctx, meterID, window.Start)
	if err != nil {
		return nil, err
	}

	stats := s.calc.ComputeResolved(
		meter.ID, meter.ThresholdsCSV, window,
		snapshotOrNil(earliest), snapshotOrNil(latest), snapshotOrNil(carry),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return &stats, nil
}

// Overview returns a single meter with its latest reading and stats.
func (s *MeterService) Overview(ctx context.Context, meterID uuid.UUID) (*MeterOverview, error) {
	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}
	return s.buildOverview(ctx, meter)
}

// Overviews returns every meter with its latest reading and stats, ordered
// by name.
func (s *MeterService) Overviews(ctx context.Context) ([]MeterOverview, error) {
	meters, err := s.store.ListMeters(ctx)
	if err != nil {
		return nil, err
	}
	overviews := make([]MeterOverview, 0, len(meters))
	for i := range meters {
		overview, err := s.buildOverview(ctx, &meters[i])
		if err != nil {
			return nil, err
		}
		overviews = append(overviews, *overview)
	}
	return overviews, nil
}

// ResyncReminders re-enables scheduler entries for every meter whose
// reminder is on. Called at startup since schedule state lives in memory.
func (s *MeterService) ResyncReminders(ctx context.Context) error {
	meters, err := s.store.ListMeters(ctx)
	if err != nil {
		return fmt.Errorf("failed to list meters for reminder resync: %w", err)
	}
	count := 0
	for i := range meters {
		if meters[i].ReminderEnabled {
			s.scheduler.Enable(&meters[i])
			count++
		}
	}
	s.logger.Info("reminders resynced", zap.Int("enabled", count))
	return nil
}

func (s *MeterService) buildOverview(ctx context.Context, meter *db.Meter) (*MeterOverview, error) {
	latest, err := s.store.LatestReading(ctx, meter.ID)
	if err != nil {
		return nil, err
	}
	stats, err := s.CycleStats(ctx, meter.ID)
	if err != nil {
		return nil, err
	}
	return &MeterOverview{
		Meter:         *meter,
		LatestReading: latest,
		Stats:         *stats,
	}, nil
}

func (s *MeterService) invalidate(ctx context.Context, meterID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, meterID); err != nil {
		s.logger.Warn("stats cache invalidation failed",
			zap.Error(err),
			zap.String("meter_id", meterID.String()),
		)
	}
}

func snapshotOrNil(reading *db.Reading) *billing.Reading {
	if reading == nil {
		return nil
	}
	snapshot := reading.Snapshot()
	return &snapshot
}

func clampAnchor(day int) int {
	if day < 1 {
		return 1
	}
	if day > 31 {
		return 31
	}
	return day
}

func coerceFrequency(days int) int {
	if days < 1 {
		return 1
	}
	return days
}
