package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aidin1998/cryptoapi/api"
	"github.com/Aidin1998/cryptoapi/internal/bootstrap"
	"github.com/Aidin1998/cryptoapi/internal/config"
	"github.com/Aidin1998/cryptoapi/internal/crypto"
	"github.com/Aidin1998/cryptoapi/internal/telemetry"
	"github.com/Aidin1998/cryptoapi/pkg/logger"
	"github.com/Aidin1998/cryptoapi/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Tracing:     cfg.Tracing.Enabled,
		Metrics:     cfg.Tracing.Metrics,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up telemetry", zap.Error(err))
	}

	repo, err := bootstrap.OpenRepository(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	publisher := bootstrap.NewPublisher(cfg, zapLogger)
	cryptoSvc := crypto.NewService(repo, publisher, validation.NewValidator(zapLogger), zapLogger)

	opts := api.Options{
		Addr:              cfg.Addr(),
		ServiceName:       cfg.Tracing.ServiceName,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		Limits:            crypto.Limits{Default: cfg.Pagination.DefaultLimit, Max: cfg.Pagination.MaxLimit},
	}
	closeLimiterStore := func() error { return nil }
	if cfg.RateLimit.Enabled {
		opts.RateLimit = cfg.RateLimit.Rate
		opts.RateLimitStore, closeLimiterStore, err = bootstrap.NewRateLimitStore(ctx, cfg, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}

	apiServer, err := api.NewServer(zapLogger, cryptoSvc, opts)
	if err != nil {
		zapLogger.Fatal("Failed to create API server", zap.Error(err))
	}

	// Start server in a goroutine
	go func() {
		if err := apiServer.Start(); err != nil {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down API server", zap.Error(err))
	}
	cancel()
	if err := publisher.Close(); err != nil {
		zapLogger.Error("Failed to close event publisher", zap.Error(err))
	}
	if err := closeLimiterStore(); err != nil {
		zapLogger.Error("Failed to close rate limit store", zap.Error(err))
	}
	if err := repo.Close(shutdownCtx); err != nil {
		zapLogger.Error("Failed to close database", zap.Error(err))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		zapLogger.Error("Failed to flush telemetry", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
