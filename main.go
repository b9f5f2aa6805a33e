// Package main provides the entry point of the Susanoo outbound dispatch service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Susanoo/app/handlers"
	"github.com/amirphl/Susanoo/app/middleware"
	"github.com/amirphl/Susanoo/app/router"
	"github.com/amirphl/Susanoo/app/scheduler"
	"github.com/amirphl/Susanoo/app/services"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	_ "github.com/amirphl/Susanoo/docs"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	logger    *logrus.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Caller:     cfg.Logging.EnableCaller,
	})
	logger.WithFields(logrus.Fields{
		"environment": cfg.Deployment.Environment,
		"version":     cfg.Deployment.Version,
	}).Info("Starting Susanoo dispatch service")

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully...")

	// Stop background workers before the server so no new dispatch starts mid-shutdown
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}

	sentry.Flush(2 * time.Second)
	logger.Info("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Info("Database connection established")

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity. A disabled cache yields nil.
func initializeCache(cfg config.CacheConfig, logger logrus.FieldLogger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithField("db", cfg.RedisDB).Info("Redis connection established")
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues in the logs.
// The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger logrus.FieldLogger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.WithError(err).Warn("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeErrorReporter configures sentry when a DSN is present
func initializeErrorReporter(cfg config.SentryConfig, deployment config.DeploymentConfig, logger logrus.FieldLogger) services.ErrorReporter {
	if cfg.DSN == "" {
		return services.NewNoopReporter()
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          deployment.Version,
		TracesSampleRate: cfg.TracesSampleRate,
	}); err != nil {
		logger.WithError(err).Warn("Sentry initialization failed; error reporting disabled")
		return services.NewNoopReporter()
	}
	return services.NewSentryReporter(logger)
}

// initializeEventPublisher connects to the broker when one is configured
func initializeEventPublisher(cfg config.EventsConfig, logger logrus.FieldLogger) (services.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		return services.NewNoopPublisher(), func() {}
	}
	publisher, err := services.NewAMQPPublisher(cfg.AMQPURL, cfg.Queue)
	if err != nil {
		logger.WithError(err).Warn("Event broker unavailable; dispatch events are stored only")
		return services.NewNoopPublisher(), func() {}
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close event publisher")
		}
	}
}

// initializeApplication wires configuration, storage, flows, handlers and the router
func initializeApplication(cfg *config.ProductionConfig, logger *logrus.Logger) (*Application, error) {
	var stopFuncs []func()

	if cfg.Database.AutoMigrate {
		if err := repository.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsDir, logger); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	checks := map[string]router.HealthChecker{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	reporter := initializeErrorReporter(cfg.Sentry, cfg.Deployment, logger)
	publisher, closePublisher := initializeEventPublisher(cfg.Events, logger)

	deps := businessflow.FlowDeps{
		Logger:    logger,
		Publisher: publisher,
		Reporter:  reporter,
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval, logger))
		deps.Cache = services.NewRedisSessionCache(rc, cfg.Cache.RedisPrefix, cfg.Cache.DefaultTTL)
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	// Repositories
	batchRepo := repository.NewBatchRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	campaignContactRepo := repository.NewCampaignContactRepository(db)
	sessionRepo := repository.NewDispatchSessionRepository(db)
	eventRepo := repository.NewDispatchEventRepository(db)
	deliveryRepo := repository.NewDeliveryRecordRepository(db)
	queueRepo := repository.NewSchedulingQueueRepository(db)
	logRepo := repository.NewSchedulingLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	var providerClient services.ProviderClient
	if cfg.Provider.APIKey != "" {
		providerClient = services.NewProviderClient(cfg.Provider)
	} else {
		logger.Warn("PROVIDER_API_KEY is not set; provider submissions are disabled")
	}
	webhookClient := services.NewWebhookClient(cfg.Webhook.Timeout)

	// Flows
	chunker := businessflow.NewProviderChunker(providerClient, cfg.Provider, deps)

	var callDispatcher businessflow.CallDispatcher = businessflow.HandoffDispatcher{}
	if cfg.Dispatch.CallViaProvider && providerClient != nil {
		callDispatcher = businessflow.NewProviderCallDispatcher(chunker)
	}

	seedFlow := businessflow.NewSeedFlow(campaignRepo, batchRepo, campaignContactRepo, deps, cfg.Dispatch)
	reconcileFlow := businessflow.NewReconciliationFlow(campaignRepo, campaignContactRepo, eventRepo, deps, cfg.Dispatch)
	sessionFlow := businessflow.NewDispatchSessionFlow(campaignRepo, campaignContactRepo, sessionRepo, eventRepo, reconcileFlow, callDispatcher, deps, cfg.Dispatch)
	channelFlow := businessflow.NewChannelDispatchFlow(campaignRepo, campaignContactRepo, eventRepo, webhookClient, deps, cfg.Dispatch, cfg.Webhook)
	submitFlow := businessflow.NewProviderSubmitFlow(batchRepo, chunker, deps, cfg.Dispatch)
	drainFlow := businessflow.NewQueueDrainFlow(batchRepo, queueRepo, logRepo, chunker, deps, cfg.Dispatch, cfg.Provider, cfg.Cache.LockTTL)
	callbackFlow := businessflow.NewDeliveryCallbackFlow(campaignContactRepo, deliveryRepo, deps, cfg.Provider)
	reportFlow := businessflow.NewSessionReportFlow(sessionRepo, eventRepo, deps)

	// Handlers
	h := router.Handlers{
		Dispatch: handlers.NewDispatchHandler(seedFlow, sessionFlow, channelFlow, reconcileFlow, cfg.Dispatch.SessionDuration, logger),
		Sessions: handlers.NewSessionHandler(reportFlow, logger),
		Provider: handlers.NewProviderHandler(submitFlow, drainFlow, callbackFlow, cfg.Server.WriteTimeout, logger),
	}

	appRouter := router.NewFiberRouter(cfg, h, middleware.NewAuthMiddleware(tokenService), logger, checks)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewDispatchScheduler(sessionFlow, channelFlow, reconcileFlow, cfg.Scheduler,
			cfg.Dispatch.SessionDuration+30*time.Second, logger)
		stopScheduler, err := sched.Start(context.Background())
		if err != nil {
			return nil, err
		}
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	stopFuncs = append(stopFuncs, closePublisher)
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
