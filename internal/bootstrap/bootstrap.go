// Package bootstrap assembles store, publisher and rate limiter
// dependencies from configuration for the cryptoapi binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Aidin1998/cryptoapi/internal/config"
	"github.com/Aidin1998/cryptoapi/internal/crypto"
	"github.com/Aidin1998/cryptoapi/internal/database"
	limiter "github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const poolStatsInterval = 30 * time.Second

// OpenRepository connects to the configured store, retrying as configured,
// and prepares its schema. SQL pool statistics are collected until ctx ends.
func OpenRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (crypto.Repository, error) {
	dbCfg := cfg.Database
	var repo crypto.Repository

	switch dbCfg.Driver {
	case config.DriverMongo:
		var client *mongo.Client
		err := database.Retry(ctx, logger, dbCfg.ConnectRetries, dbCfg.RetryDelay, "mongodb", func(ctx context.Context) error {
			var err error
			client, err = database.NewMongoClient(ctx, dbCfg.URL, dbCfg.ServerSelectionTimeout)
			return err
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to MongoDB", zap.String("database", dbCfg.Name), zap.String("collection", dbCfg.Collection))
		repo = crypto.NewMongoRepository(client, dbCfg.Name, dbCfg.Collection, logger)

	case config.DriverPostgres, config.DriverSQLite:
		var db *gorm.DB
		err := database.Retry(ctx, logger, dbCfg.ConnectRetries, dbCfg.RetryDelay, dbCfg.Driver, func(ctx context.Context) error {
			var err error
			if dbCfg.Driver == config.DriverPostgres {
				db, err = database.NewPostgresDB(dbCfg.URL, dbCfg.MaxOpenConns, dbCfg.MaxIdleConns, dbCfg.ConnMaxLifetime)
			} else {
				db, err = database.NewSQLiteDB(dbCfg.URL)
			}
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				_ = sqlDB.Close()
				return err
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to SQL database", zap.String("driver", dbCfg.Driver))
		go database.CollectPoolStats(ctx, db, dbCfg.Driver, poolStatsInterval)
		repo = crypto.NewGormRepository(db, logger)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}

	repo = crypto.Instrument(repo, dbCfg.Driver)
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close(context.Background())
		return nil, err
	}
	return repo, nil
}

// NewPublisher returns a Kafka publisher when enabled, otherwise a no-op one
func NewPublisher(cfg *config.Config, logger *zap.Logger) crypto.Publisher {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return crypto.NoopPublisher{}
	}
	logger.Info("Publishing change events to Kafka",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic))
	return crypto.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
}

// NewRateLimitStore returns a Redis-backed limiter store when a Redis address
// is configured, so limits are shared between instances. A nil store means
// the API server falls back to memory.
func NewRateLimitStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (limiter.Store, func() error, error) {
	noop := func() error { return nil }
	if !cfg.RateLimit.Enabled || cfg.Redis.Address == "" {
		return nil, noop, nil
	}

	client, err := database.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, noop, err
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "cryptoapi:ratelimit",
	})
	if err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	logger.Info("Rate limits stored in Redis", zap.String("address", cfg.Redis.Address))
	return store, client.Close, nil
}
