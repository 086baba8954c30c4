package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// SlowThreshold logs commands slower than this. Zero disables it.
	SlowThreshold time.Duration
}

// DefaultRedisConfig returns local development defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		PoolSize:      20,
		SlowThreshold: 50 * time.Millisecond,
	}
}

// NewRedisClient connects, installs the tracing hook and pool collector on
// reg (skipped when nil), and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig, reg prometheus.Registerer, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	client.AddHook(NewTracingHook(cfg.SlowThreshold, logger))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	if reg != nil {
		if err := reg.Register(NewPoolStatsCollector(client)); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				_ = client.Close()
				return nil, fmt.Errorf("register redis pool metrics: %w", err)
			}
		}
	}

	return client, nil
}
