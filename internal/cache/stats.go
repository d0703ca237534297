package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/billing"
)

// StatsCache caches computed cycle statistics in Redis with a short TTL.
// Stats are derived data; the cache only exists so hot list/detail queries
// do not recompute the same snapshot on every request. Any write to a meter
// invalidates its entry.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache connects to Redis and ties the client to the fx lifecycle.
func NewStatsCache(lc fx.Lifecycle, logger *zap.Logger, addr string, ttl time.Duration) (*StatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: 3,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Error("redis ping failed", zap.Error(err), zap.String("addr", addr))
				return fmt.Errorf("cannot reach redis: %w", err)
			}
			logger.Info("redis connection established")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &StatsCache{client: client, ttl: ttl}, nil
}

func statsKey(meterID uuid.UUID) string {
	return "cyclestats:" + meterID.String()
}

// Get returns the cached stats for a meter, or nil on a miss.
func (c *StatsCache) Get(ctx context.Context, meterID uuid.UUID) (*billing.CycleStats, error) {
	val, err := c.client.Get(ctx, statsKey(meterID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats cache: %w", err)
	}

	var stats billing.CycleStats
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, fmt.Errorf("failed to decode cached stats: %w", err)
	}
	return &stats, nil
}

// Set stores the stats snapshot for its meter.
func (c *StatsCache) Set(ctx context.Context, stats billing.CycleStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(stats.MeterID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stats cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached stats for a meter.
func (c *StatsCache) Invalidate(ctx context.Context, meterID uuid.UUID) error {
	if err := c.client.Del(ctx, statsKey(meterID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats cache: %w", err)
	}
	return nil
}
