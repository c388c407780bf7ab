package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/Aidin1998/cryptoapi/internal/config"
	"github.com/Aidin1998/cryptoapi/internal/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sqliteConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.URL = ":memory:"
	cfg.Database.ConnectRetries = 0
	return cfg
}

func TestOpenRepository_SQLite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := OpenRepository(ctx, sqliteConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer repo.Close(context.Background())

	require.NoError(t, repo.Ping(ctx))
	n, err := repo.Count(ctx, crypto.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenRepository_GivesUp(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = config.DriverPostgres
	cfg.Database.URL = "host=127.0.0.1 port=1 user=nobody dbname=none sslmode=disable connect_timeout=1"
	cfg.Database.ConnectRetries = 1
	cfg.Database.RetryDelay = time.Millisecond

	_, err := OpenRepository(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestOpenRepository_UnknownDriver(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Database.Driver = "cassandra"

	_, err := OpenRepository(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewPublisher(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.Default()

	assert.IsType(t, crypto.NoopPublisher{}, NewPublisher(cfg, logger))

	cfg.Kafka.Enabled = true
	pub := NewPublisher(cfg, logger)
	assert.IsType(t, &crypto.KafkaPublisher{}, pub)
	assert.NoError(t, pub.Close())
}

func TestNewRateLimitStore_WithoutRedis(t *testing.T) {
	store, closeFn, err := NewRateLimitStore(context.Background(), config.Default(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.NoError(t, closeFn())
}
