package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/floor-sync/internal/adapter/api"
	"github.com/V4T54L/floor-sync/internal/adapter/api/handler"
	"github.com/V4T54L/floor-sync/internal/adapter/api/middleware"
	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/adapter/pii"
	"github.com/V4T54L/floor-sync/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/floor-sync/internal/adapter/repository/redis"
	"github.com/V4T54L/floor-sync/internal/adapter/repository/snapshot"
	"github.com/V4T54L/floor-sync/internal/livefeed"
	"github.com/V4T54L/floor-sync/internal/pkg/config"
	"github.com/V4T54L/floor-sync/internal/pkg/logger"
	"github.com/V4T54L/floor-sync/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

const subscribeRetryInterval = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("could not connect to redis, serving without cache until it recovers", "error", err)
	}

	// --- Initialize Repositories ---
	roles := postgres.NewCommitterRoleCache(db, logger, cfg.RoleCacheTTL, m)
	floorPlanRepo := postgres.NewFloorPlanRepository(db, roles, logger)
	bookingRepo := postgres.NewBookingRepository(db, logger)

	snapshotRepo, err := snapshot.NewRepository(cfg.SnapshotDir, logger)
	if err != nil {
		logger.Error("failed to initialize snapshot repository", "error", err)
		os.Exit(1)
	}

	cache := redisrepo.NewCacheRepository(redisClient, logger, m)
	go cache.StartHealthCheck(ctx, cfg.CacheHealthCheck)

	broker := redisrepo.NewEventBroker(redisClient, cfg.LiveFeedChannel, logger, m)

	// --- Initialize Use Cases ---
	effects := usecase.NewSideEffectQueue(snapshotRepo, broker, logger, m, cfg.SideEffectQueueSize)
	retry := usecase.RetryPolicy{MaxAttempts: cfg.CommitMaxAttempts, Backoff: cfg.CommitBackoff}
	syncEngine := usecase.NewSyncEngine(floorPlanRepo, snapshotRepo, cache, effects, retry, logger, m)
	queries := usecase.NewFloorPlanQueryUseCase(floorPlanRepo, cache, cfg.FloorPlanCacheTTL, cfg.ListCacheTTL, logger)
	redactor := pii.NewRedactor(cfg.RedactionFields(), logger)
	liveStatus := usecase.NewLiveStatusUseCase(floorPlanRepo, bookingRepo, cache, redactor, cfg.StatusCacheTTL, logger)
	bookings := usecase.NewBookingUseCase(bookingRepo, cache, effects, logger)

	// --- Live Feed ---
	registry := livefeed.NewRegistry(logger, m)
	hub := livefeed.NewHub(registry, logger, m)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		runHub(ctx, hub, broker, logger)
	}()

	// --- Start Admin and Metrics Server ---
	adminHandler := handler.NewAdminHandler(db, cache, snapshotRepo,
		redisrepo.NewAdminRepository(redisClient, cfg.LiveFeedChannel, logger), registry, logger)
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(adminHandler, prometheus.DefaultGatherer, logger),
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Initialize API Server ---
	auth := middleware.NewAuthenticator(cfg.JWTSecret, logger)
	router := api.NewRouter(logger, auth, api.Handlers{
		FloorPlans: handler.NewFloorPlanHandler(syncEngine, queries, liveStatus, logger),
		Bookings:   handler.NewBookingHandler(bookings, logger),
		LiveFeed:   handler.NewLiveFeedHandler(registry, queries, logger, cfg.LiveFeedKeepAlive, cfg.LiveFeedBuffer),
	})
	apiServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting api server", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	// Long-lived streams would hold Shutdown open until the timeout.
	registry.CloseAll()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	effects.Close()
	<-hubDone
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

// runHub keeps a subscription to the live event channel open until ctx is done,
// resubscribing after Redis failures.
func runHub(ctx context.Context, hub *livefeed.Hub, broker *redisrepo.EventBroker, logger *slog.Logger) {
	for {
		sub, err := broker.Subscribe(ctx)
		if err != nil {
			logger.Warn("live feed subscription failed, retrying", "error", err, "retry_in", subscribeRetryInterval)
		} else {
			hub.Run(ctx, sub)
			sub.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(subscribeRetryInterval):
		}
	}
}
