// Package database provides store connection helpers
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Retry runs fn until it succeeds, making at most 1+retries attempts with a
// fixed delay between them. It gives up early when ctx is done.
func Retry(ctx context.Context, logger *zap.Logger, retries int, delay time.Duration, what string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		remaining := retries - attempt
		logger.Error("Connection attempt failed",
			zap.String("target", what),
			zap.Int("attempt", attempt+1),
			zap.Int("retries_left", remaining),
			zap.Error(err))
		if remaining == 0 {
			break
		}

		logger.Info("Retrying connection", zap.String("target", what), zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", what, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("could not connect to %s after %d attempts: %w", what, retries+1, err)
}

// CollectPoolStats publishes SQL pool gauges until ctx is cancelled
func CollectPoolStats(ctx context.Context, db *gorm.DB, name string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if sqlDB, err := db.DB(); err == nil {
				metrics.DBOpenConns.WithLabelValues(name).Set(float64(sqlDB.Stats().OpenConnections))
			}
		case <-ctx.Done():
			return
		}
	}
}
