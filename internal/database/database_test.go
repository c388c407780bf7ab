package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	logger := zaptest.NewLogger(t)
	calls := 0

	err := Retry(context.Background(), logger, 5, time.Millisecond, "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUpAfterRetries(t *testing.T) {
	logger := zaptest.NewLogger(t)
	calls := 0
	cause := errors.New("connection refused")

	err := Retry(context.Background(), logger, 2, time.Millisecond, "test", func(ctx context.Context) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
}

func TestRetry_ZeroRetriesTriesOnce(t *testing.T) {
	logger := zaptest.NewLogger(t)
	calls := 0

	err := Retry(context.Background(), logger, 0, time.Hour, "test", func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsWhenContextCancelled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Retry(ctx, logger, 5, time.Hour, "test", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewSQLiteDB_InMemory(t *testing.T) {
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.NoError(t, sqlDB.Ping())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
