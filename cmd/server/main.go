package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/munaimtahir/kwh/internal/config"
)

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	} else {
		fmt.Println("No .env file found, using system environment variables")
	}

	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			newClock,
			ProvideDBPool,
			ProvideRepository,
			ProvideCalculator,
			ProvideAnomalyDetector,
			ProvideStatsCache,
			ProvideMQConnection,
			ProvidePublisher,
			ProvideNotifier,
			ProvideScheduler,
			ProvideMeterService,
			ProvideHandler,
			ProvideRouter,
			ProvideHTTPServer,
		),
		fx.Invoke(startService),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("error stopping app:", err)
	}
}
