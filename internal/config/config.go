package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	HTTPPort    int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Redis       RedisConfig
	Reminders   ReminderConfig
	Anomaly     AnomalyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and exchange settings for the
// outbound reminder events.
type RabbitMQConfig struct {
	URL                string
	ReminderExchange   string
	ReminderRoutingKey string
}

// RedisConfig holds the stats cache settings.
type RedisConfig struct {
	Addr            string
	StatsTTLSeconds int
}

// ReminderConfig holds reminder scheduling defaults.
type ReminderConfig struct {
	DefaultSnoozeMinutes int
}

// AnomalyConfig holds reading sanity-check settings.
type AnomalyConfig struct {
	SpikeThreshold            float64
	MinDataPointsForDetection int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "kwh"),
		HTTPPort:    getEnvAsInt("HTTP_PORT", 8080),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                getEnv("RABBITMQ_URL", ""),
			ReminderExchange:   getEnv("RABBITMQ_REMINDER_EXCHANGE", "kwh.reminders.exchange"),
			ReminderRoutingKey: getEnv("RABBITMQ_REMINDER_ROUTING_KEY", "meter.reminder.due"),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			StatsTTLSeconds: getEnvAsInt("STATS_CACHE_TTL_SECONDS", 300),
		},
		Reminders: ReminderConfig{
			DefaultSnoozeMinutes: getEnvAsInt("REMINDER_SNOOZE_MINUTES", 60),
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold:            getEnvAsFloat("ANOMALY_SPIKE_THRESHOLD", 3.0),
			MinDataPointsForDetection: getEnvAsInt("ANOMALY_MIN_DATA_POINTS", 3),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
