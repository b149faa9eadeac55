package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/medmap/scheduling-api/internal/config"
	"github.com/medmap/scheduling-api/internal/handler/health"
	promHandler "github.com/medmap/scheduling-api/internal/handler/prometheus"
	"github.com/medmap/scheduling-api/internal/notify"
	"github.com/medmap/scheduling-api/internal/repository/postgres"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/messaging"
	"github.com/medmap/scheduling-api/pkg/messaging/redis"
	"github.com/medmap/scheduling-api/pkg/metrics"
	"github.com/medmap/scheduling-api/pkg/worker"
)

const healthPort = 8081

func setupHealthCheck(ctx context.Context, deps map[string]health.Pinger, registry *prometheus.Registry, appLogger *logger.Logger) {
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(deps, promHandler.New(registry).Handler()).RegisterRoutes(engine.Group(""))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", healthPort),
		Handler: engine,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "health check server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	}).WithFields(map[string]interface{}{"component": "worker"})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(registry, cfg.Monitoring.MetricsPrefix, "worker")

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger, appMetrics)
	if err != nil {
		appLogger.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	processor, err := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		},
		appLogger,
		appMetrics,
	)
	if err != nil {
		appLogger.Fatal(err, "invalid outbox configuration")
	}
	cleanup := worker.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, time.Hour, appLogger, appMetrics)

	notifier := notify.NewNotifier(
		postgres.NewContactRepository(db),
		postgres.NewDoctorRepository(db),
		notify.NewSMTPMailer(cfg.SMTP),
		appLogger,
		appMetrics,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupHealthCheck(ctx, map[string]health.Pinger{
		"database": db,
		"redis":    health.PingFunc(broker.Ping),
	}, registry, appLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := messaging.Consume(ctx, broker, notifier.Channels(), notifier.Handle, appLogger); err != nil {
			appLogger.Error(err, "notification consumer stopped")
			cancel()
		}
	}()

	wg.Wait()
	appLogger.Info("worker exited properly")
}
