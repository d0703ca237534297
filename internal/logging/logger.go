package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates the service-wide structured logger. Every entry carries
// the service name so aggregated logs stay attributable.
func NewLogger(serviceName string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]interface{}{
		"service": serviceName,
	}
	return cfg.Build()
}

// WithMeter returns a logger annotated with the meter id field used across
// the reminder and stats pipelines.
func WithMeter(logger *zap.Logger, meterID string) *zap.Logger {
	return logger.With(zap.String("meter_id", meterID))
}
