package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/billing"
	"github.com/munaimtahir/kwh/internal/clock"
	"github.com/munaimtahir/kwh/internal/db"
	"github.com/munaimtahir/kwh/internal/logging"
	"github.com/munaimtahir/kwh/internal/mq"
)

// Store is the data access the notifier needs.
type Store interface {
	GetMeter(ctx context.Context, meterID uuid.UUID) (*db.Meter, error)
	ListReadings(ctx context.Context, meterID uuid.UUID) ([]db.Reading, error)
}

// EventPublisher is the outbound boundary for reminder events.
type EventPublisher interface {
	PublishReminder(ctx context.Context, event mq.ReminderEvent, routingKey string) error
}

// Notifier builds and publishes the reminder notification for a meter. It is
// the fire target of the reminder scheduler: it recomputes the meter's cycle
// statistics at fire time so the nudge content is current.
type Notifier struct {
	store      Store
	publisher  EventPublisher
	routingKey string
	calc       *billing.Calculator
	clock      clock.Clock
	logger     *zap.Logger
}

// NewNotifier creates a reminder notifier.
func NewNotifier(store Store, publisher EventPublisher, routingKey string, calc *billing.Calculator, clk clock.Clock, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:      store,
		publisher:  publisher,
		routingKey: routingKey,
		calc:       calc,
		clock:      clk,
		logger:     logger,
	}
}

// Notify computes the meter's current cycle statistics and publishes a
// reminder event carrying any nudge messages.
func (n *Notifier) Notify(ctx context.Context, meterID uuid.UUID) error {
	meter, err := n.store.GetMeter(ctx, meterID)
	if err != nil {
		return fmt.Errorf("failed to load meter: %w", err)
	}
	logger := logging.WithMeter(n.logger, meter.ID.String())

	readings, err := n.store.ListReadings(ctx, meterID)
	if err != nil {
		return fmt.Errorf("failed to load readings: %w", err)
	}

	now := n.clock.Now()
	stats, err := n.calc.Compute(meter.ID, meter.BillingAnchorDay, meter.ThresholdsCSV, db.Snapshots(readings))
	if err != nil {
		return fmt.Errorf("failed to compute cycle stats: %w", err)
	}

	event := mq.ReminderEvent{
		MeterID:   meter.ID.String(),
		MeterName: meter.Name,
		FiredAt:   now,
		Messages:  BuildMessages(stats, now),
	}
	if err := n.publisher.PublishReminder(ctx, event, n.routingKey); err != nil {
		return fmt.Errorf("failed to publish reminder: %w", err)
	}

	logger.Info("reminder published",
		zap.String("meter_name", meter.Name),
		zap.Int("nudges", len(event.Messages)),
	)
	return nil
}
