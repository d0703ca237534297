package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/anomaly"
	"github.com/munaimtahir/kwh/internal/billing"
	"github.com/munaimtahir/kwh/internal/cache"
	"github.com/munaimtahir/kwh/internal/clock"
	"github.com/munaimtahir/kwh/internal/config"
	"github.com/munaimtahir/kwh/internal/db"
	"github.com/munaimtahir/kwh/internal/httpapi"
	"github.com/munaimtahir/kwh/internal/mq"
	"github.com/munaimtahir/kwh/internal/notify"
	"github.com/munaimtahir/kwh/internal/reminders"
	"github.com/munaimtahir/kwh/internal/repository"
	"github.com/munaimtahir/kwh/internal/service"
)

func newClock() clock.Clock {
	return clock.System()
}

// ProvideDBPool creates the database pool.
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates the meter/reading repository.
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideCalculator creates the billing-cycle calculator.
func ProvideCalculator(clk clock.Clock) *billing.Calculator {
	return billing.NewCalculator(clk)
}

// ProvideAnomalyDetector creates the reading sanity-checker.
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection)
}

// ProvideStatsCache creates the Redis-backed cycle stats cache.
func ProvideStatsCache(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*cache.StatsCache, error) {
	ttl := time.Duration(cfg.Redis.StatsTTLSeconds) * time.Second
	return cache.NewStatsCache(lc, logger, cfg.Redis.Addr, ttl)
}

// ProvideMQConnection creates the RabbitMQ connection.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the reminder event publisher.
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.ReminderExchange, logger)
}

// ProvideNotifier creates the reminder notifier fired by the scheduler.
func ProvideNotifier(
	repo *repository.Repository,
	publisher *mq.Publisher,
	cfg *config.Config,
	calc *billing.Calculator,
	clk clock.Clock,
	logger *zap.Logger,
) *notify.Notifier {
	return notify.NewNotifier(repo, publisher, cfg.RabbitMQ.ReminderRoutingKey, calc, clk, logger)
}

// ProvideScheduler creates the reminder scheduler with the notifier as its
// fire target.
func ProvideScheduler(notifier *notify.Notifier, logger *zap.Logger) *reminders.Scheduler {
	return reminders.NewScheduler(notifier.Notify, logger)
}

// ProvideMeterService wires the meter service.
func ProvideMeterService(
	repo *repository.Repository,
	calc *billing.Calculator,
	scheduler *reminders.Scheduler,
	statsCache *cache.StatsCache,
	detector *anomaly.Detector,
	clk clock.Clock,
	cfg *config.Config,
	logger *zap.Logger,
) *service.MeterService {
	snooze := time.Duration(cfg.Reminders.DefaultSnoozeMinutes) * time.Minute
	return service.NewMeterService(repo, calc, scheduler, statsCache, detector, clk, snooze, logger)
}

// ProvideHandler creates the HTTP handler set.
func ProvideHandler(svc *service.MeterService, logger *zap.Logger) *httpapi.Handler {
	return httpapi.NewHandler(svc, logger)
}

// ProvideRouter builds the routing tree.
func ProvideRouter(h *httpapi.Handler) http.Handler {
	return httpapi.NewRouter(h)
}

// ProvideHTTPServer creates the lifecycle-managed HTTP server.
func ProvideHTTPServer(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config, handler http.Handler) *http.Server {
	return httpapi.NewServer(lc, logger, handler, cfg.HTTPPort)
}

// startService starts the reminder scheduler, restores persisted reminder
// schedules and forces construction of the HTTP server.
func startService(
	lc fx.Lifecycle,
	scheduler *reminders.Scheduler,
	svc *service.MeterService,
	srv *http.Server,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			if err := svc.ResyncReminders(ctx); err != nil {
				return err
			}
			logger.Info("service started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			logger.Info("service stopped")
			return nil
		},
	})
}
