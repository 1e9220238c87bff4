// Command server runs the auction bidding engine: the lifecycle sweeper, the
// outbox relay and the bid notification fan-out.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freightbid/backend/internal/application/auction"
	domainauction "github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/cache"
	"github.com/freightbid/backend/internal/infrastructure/config"
	"github.com/freightbid/backend/internal/infrastructure/event"
	"github.com/freightbid/backend/internal/infrastructure/logger"
	"github.com/freightbid/backend/internal/infrastructure/notification"
	"github.com/freightbid/backend/internal/infrastructure/persistence"
	"github.com/freightbid/backend/internal/infrastructure/scheduler"
	"github.com/freightbid/backend/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// The OTLP log bridge needs a logger of its own before the real one exists.
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	var otelCore []zapcore.Core
	if logProvider.IsEnabled() {
		otelCore = append(otelCore, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := logger.New(logCfg, otelCore...)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting auction engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL && !cfg.App.IsProduction(),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	meter := meterProvider.Meter("auction-engine")
	dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := dbMetrics.Instrument(ctx, db.DB); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}

	// Repositories
	eventSerializer := event.NewEventSerializer()
	event.RegisterAuctionEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	auctionRepo := persistence.NewGormAuctionRepository(db.DB)
	auctionRepo.SetOutboxEventSaver(outboxPublisher)
	watcherRepo := persistence.NewGormWatcherRepository(db.DB)
	ownership := persistence.NewGormVehicleOwnershipChecker(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Bidding coordinator
	auctionMetrics, err := telemetry.NewAuctionMetrics(meter, telemetry.NewGormAuctionStatusProvider(db.DB), log)
	if err != nil {
		log.Fatal("Failed to create auction metrics", zap.Error(err))
	}
	biddingService := auction.NewBiddingService(auctionRepo, watcherRepo, ownership, auction.Config{
		MaxBidRetries:            cfg.Auction.MaxBidRetries,
		RetryBackoff:             cfg.Auction.RetryBackoff,
		DefaultAutoExtendMinutes: cfg.Auction.DefaultAutoExtendMinutes,
		DutchPriceStep:           cfg.Auction.DutchPriceStep,
		EndingSoonWindow:         cfg.Auction.EndingSoonWindow,
	}, log)
	biddingService.SetMetrics(auctionMetrics)

	// Notifications
	var redisClient *redis.Client
	if cfg.Notification.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if !cfg.Notification.UseInMemoryIdempotency() {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			log.Warn("Redis unavailable, notifications will only be logged", zap.Error(err))
			redisClient = nil
		}
	}

	relay, idempotencyStore, err := notificationRelay(cfg.Notification, redisClient, watcherRepo, log)
	if err != nil {
		log.Fatal("Failed to create notification relay", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	if relay != nil {
		eventBus.Subscribe(relay)
		log.Info("Notification handler registered", zap.Strings("event_types", relay.EventTypes()))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
		CleanupInterval:  cfg.Event.CleanupInterval,
	}, log)
	if cfg.Event.ProcessorEnabled {
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", cfg.Event.BatchSize),
			zap.Duration("poll_interval", cfg.Event.PollInterval),
		)
	}

	// Lifecycle sweeper
	sweeperConfig := scheduler.DefaultLifecycleSweeperConfig()
	sweeperConfig.Enabled = cfg.Sweeper.Enabled
	if cfg.Sweeper.Interval > 0 {
		sweeperConfig.Interval = cfg.Sweeper.Interval
	}
	if cfg.Sweeper.BatchSize > 0 {
		sweeperConfig.BatchSize = cfg.Sweeper.BatchSize
	}
	if cfg.Sweeper.Concurrency > 0 {
		sweeperConfig.Concurrency = cfg.Sweeper.Concurrency
	}
	sweeper := scheduler.NewLifecycleSweeper(auctionRepo, biddingService, log, sweeperConfig)
	sweeper.SetMetrics(auctionMetrics)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start lifecycle sweeper", zap.Error(err))
	}

	if cfg.Telemetry.MetricsEnabled {
		auctionMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}

	log.Info("Auction engine running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop producers before the things they write to.
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping lifecycle sweeper", zap.Error(err))
	}
	if cfg.Event.ProcessorEnabled {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	auctionMetrics.Stop()
	dbMetrics.Stop()
	if closer, ok := idempotencyStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", zap.Error(err))
	}
	log.Info("Auction engine stopped")
	_ = log.Sync()
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		bootLog.Error("Error shutting down log export", zap.Error(err))
	}
}

// notificationRelay builds the idempotent notification handler. With
// notifications disabled it returns no handler and no store, whatever the
// idempotency backend says.
func notificationRelay(cfg config.NotificationConfig, client *redis.Client, watchers domainauction.WatcherRepository, log *zap.Logger) (shared.EventHandler, shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	store, err := cache.NewIdempotencyStore(client, cfg.UseInMemoryIdempotency(), log)
	if err != nil {
		return nil, nil, err
	}

	var notifier auction.Notifier = auction.NewLoggingNotifier(log.Named("notification"))
	if client != nil {
		notifier = notification.NewRedisNotifier(client, cfg.ChannelPrefix, log)
	}
	handler := event.NewIdempotentHandler(
		auction.NewNotificationHandler(watchers, notifier, log.Named("notification")),
		store,
		shared.IdempotencyConfig{TTL: cfg.IdempotencyTTL, Enabled: true},
		log,
	)
	return handler, store, nil
}
