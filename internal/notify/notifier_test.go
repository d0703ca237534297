package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/billing"
	"github.com/munaimtahir/kwh/internal/clock"
	"github.com/munaimtahir/kwh/internal/db"
	"github.com/munaimtahir/kwh/internal/mq"
	"github.com/munaimtahir/kwh/internal/notify"
)

type stubStore struct {
	meter    *db.Meter
	readings []db.Reading
}

func (s *stubStore) GetMeter(_ context.Context, meterID uuid.UUID) (*db.Meter, error) {
	if s.meter == nil || s.meter.ID != meterID {
		return nil, errors.New("meter not found")
	}
	return s.meter, nil
}

func (s *stubStore) ListReadings(_ context.Context, _ uuid.UUID) ([]db.Reading, error) {
	return s.readings, nil
}

type capturingPublisher struct {
	events      []mq.ReminderEvent
	routingKeys []string
	err         error
}

func (p *capturingPublisher) PublishReminder(_ context.Context, event mq.ReminderEvent, routingKey string) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

func TestNotify_PublishesReminderEvent(t *testing.T) {
	now := time.Date(2024, time.March, 27, 9, 0, 0, 0, time.UTC)
	clk := clock.Fixed(now)
	meter := &db.Meter{
		ID:               uuid.New(),
		Name:             "house",
		BillingAnchorDay: 15,
		ThresholdsCSV:    "",
	}
	store := &stubStore{meter: meter}
	publisher := &capturingPublisher{}
	notifier := notify.NewNotifier(store, publisher, "meter.reminder.due",
		billing.NewCalculator(clk), clk, zap.NewNop())

	if err := notifier.Notify(context.Background(), meter.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.MeterID != meter.ID.String() || event.MeterName != "house" {
		t.Errorf("unexpected event identity: %+v", event)
	}
	if !event.FiredAt.Equal(now) {
		t.Errorf("expected fired_at %v, got %v", now, event.FiredAt)
	}
	if publisher.routingKeys[0] != "meter.reminder.due" {
		t.Errorf("unexpected routing key %q", publisher.routingKeys[0])
	}
	// Twelve days into the cycle with no readings: the nudge rides along.
	if len(event.Messages) != 1 {
		t.Errorf("expected a no-reading nudge, got %v", event.Messages)
	}
}

func TestNotify_PublishErrorPropagates(t *testing.T) {
	now := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)
	clk := clock.Fixed(now)
	meter := &db.Meter{ID: uuid.New(), Name: "house", BillingAnchorDay: 1}
	store := &stubStore{meter: meter}
	publisher := &capturingPublisher{err: errors.New("broker down")}
	notifier := notify.NewNotifier(store, publisher, "meter.reminder.due",
		billing.NewCalculator(clk), clk, zap.NewNop())

	if err := notifier.Notify(context.Background(), meter.ID); err == nil {
		t.Fatal("expected publish failure to propagate")
	}
}

func TestNotify_UnknownMeter(t *testing.T) {
	clk := clock.Fixed(time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC))
	notifier := notify.NewNotifier(&stubStore{}, &capturingPublisher{},
		"meter.reminder.due", billing.NewCalculator(clk), clk, zap.NewNop())

	if err := notifier.Notify(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown meter")
	}
}
