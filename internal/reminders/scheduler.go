package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/db"
)

var remindersFiredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminders_fired_total",
		Help: "Total number of reminder jobs fired, by outcome",
	},
	[]string{"outcome"},
)

// FireFunc is invoked when a meter's reminder comes due.
type FireFunc func(ctx context.Context, meterID uuid.UUID) error

// Scheduler manages one recurring reminder entry per meter on top of a cron
// runner. Enabling a reminder for a meter that already has one replaces the
// existing entry (replace-on-conflict), so settings changes never leave a
// stale schedule behind.
type Scheduler struct {
	cron    *cron.Cron
	entries map[uuid.UUID]cron.EntryID
	mu      sync.Mutex
	fire    FireFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler creates a reminder scheduler. The fire function is called for
// each due reminder with a bounded context.
func NewScheduler(fire FireFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[uuid.UUID]cron.EntryID),
		fire:    fire,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Start begins running scheduled reminders.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reminder scheduler started")
}

// Stop halts the scheduler and waits for any in-flight reminder job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reminder scheduler stopped")
}

// Enable schedules (or reschedules) the recurring reminder for the meter
// according to its reminder configuration.
func (s *Scheduler) Enable(meter *db.Meter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(meter.ID)
	schedule := recurringSchedule{
		frequencyDays: meter.ReminderFrequencyDays,
		hour:          meter.ReminderHour,
		minute:        meter.ReminderMinute,
	}
	s.entries[meter.ID] = s.cron.Schedule(schedule, s.job(meter.ID))

	s.logger.Info("reminder enabled",
		zap.String("meter_id", meter.ID.String()),
		zap.Int("frequency_days", meter.ReminderFrequencyDays),
		zap.Int("hour", meter.ReminderHour),
		zap.Int("minute", meter.ReminderMinute),
	)
}

// Disable cancels any reminder entry for the meter. Disabling a meter with no
// entry is a no-op.
func (s *Scheduler) Disable(meterID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeLocked(meterID) {
		s.logger.Info("reminder disabled", zap.String("meter_id", meterID.String()))
	}
}

// Snooze replaces the meter's current entry with a single firing after the
// given delay. The recurring schedule is restored the next time the reminder
// configuration is applied.
func (s *Scheduler) Snooze(meterID uuid.UUID, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(meterID)
	at := time.Now().Add(delay)
	s.entries[meterID] = s.cron.Schedule(oneShotSchedule{at: at}, s.job(meterID))

	s.logger.Info("reminder snoozed",
		zap.String("meter_id", meterID.String()),
		zap.Time("next_at", at),
	)
}

func (s *Scheduler) removeLocked(meterID uuid.UUID) bool {
	entryID, ok := s.entries[meterID]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.entries, meterID)
	return true
}

func (s *Scheduler) job(meterID uuid.UUID) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.fire(ctx, meterID); err != nil {
			remindersFiredTotal.WithLabelValues("error").Inc()
			s.logger.Error("reminder job failed",
				zap.Error(err),
				zap.String("meter_id", meterID.String()),
			)
			return
		}
		remindersFiredTotal.WithLabelValues("ok").Inc()
		s.logger.Info("reminder job completed", zap.String("meter_id", meterID.String()))
	})
}
