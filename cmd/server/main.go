package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	orderapp "github.com/paintworks/backend/internal/application/order"
	planningapp "github.com/paintworks/backend/internal/application/planning"
	productionapp "github.com/paintworks/backend/internal/application/production"
	"github.com/paintworks/backend/internal/domain/planning"
	"github.com/paintworks/backend/internal/domain/shared"
	"github.com/paintworks/backend/internal/infrastructure/auth"
	"github.com/paintworks/backend/internal/infrastructure/cache"
	"github.com/paintworks/backend/internal/infrastructure/config"
	"github.com/paintworks/backend/internal/infrastructure/event"
	"github.com/paintworks/backend/internal/infrastructure/export"
	"github.com/paintworks/backend/internal/infrastructure/logger"
	"github.com/paintworks/backend/internal/infrastructure/persistence"
	"github.com/paintworks/backend/internal/infrastructure/scheduler"
	"github.com/paintworks/backend/internal/infrastructure/telemetry"
	"github.com/paintworks/backend/internal/interfaces/http/handler"
	"github.com/paintworks/backend/internal/interfaces/http/middleware"
	"github.com/paintworks/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Paintworks Production Planning API
//	@version		1.0
//	@description	Production batch scheduling, BOM resolution and order readiness for a paint plant

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.TracingEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	if cfg.Telemetry.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		Level:             cfg.Telemetry.LogsLevel,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServer,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingAuthPass,
		ProfileMutex:      cfg.Telemetry.ProfileMutexBlock,
		ProfileBlock:      cfg.Telemetry.ProfileMutexBlock,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	planningMetrics, err := telemetry.NewPlanningMetrics(meterProvider.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Warn("Planning metrics unavailable, using no-op instruments", zap.Error(err))
		planningMetrics = telemetry.NewNoopPlanningMetrics()
	}

	// Initialize database
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Tracing:  telemetry.DBTracingConfig{Enabled: cfg.Telemetry.DBTracingEnabled},
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver()))

	// sqlite runs without the migrate tool
	if db.Driver() == config.DriverSQLite {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	// Idempotency store: redis when configured, in-memory otherwise
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// Initialize repositories
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	activityRepo := persistence.NewGormActivityLogRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	masterRepo := persistence.NewGormMasterProductRepository(db.DB)
	formulaRepo := persistence.NewGormFormulaRepository(db.DB)
	skuRepo := persistence.NewGormSKURepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Events: batch operations write the outbox, the processor feeds the bus
	bus := event.NewInMemoryEventBus(log)
	serializer := event.NewProductionEventSerializer()
	publisher := event.NewOutboxPublisher(serializer, cfg.Outbox.MaxRetries)

	processorConfig := event.DefaultOutboxProcessorConfig()
	processorConfig.BatchSize = cfg.Outbox.BatchSize
	processorConfig.PollInterval = cfg.Outbox.PollInterval
	processorConfig.CleanupRetention = cfg.Outbox.CleanupRetention
	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, processorConfig, planningMetrics, log)

	idempotencyConfig := shared.IdempotencyConfig{TTL: cfg.Outbox.IdempotencyTTL, Enabled: true}
	productionapp.RegisterHandlers(bus, orderRepo, batchRepo, activityRepo,
		func(h shared.NamedHandler) shared.NamedHandler {
			return event.NewIdempotentHandler(h, idempotencyStore, log, event.WithIdempotencyConfig(idempotencyConfig))
		}, log)

	// Planning domain services
	resolver := planning.NewResolver(skuRepo, masterRepo, formulaRepo)
	aggregator := planning.NewAggregator(resolver)
	checker := planning.NewChecker(resolver, aggregator, masterRepo)

	// Initialize application services
	batchConfig := productionapp.DefaultConfig()
	batchConfig.OutputTolerancePercent = cfg.Planning.OutputWeightTolerancePercent
	batchConfig.BatchNumberMaxAttempts = cfg.Planning.BatchNumberMaxAttempts
	batchService := productionapp.NewBatchService(
		persistence.NewGormTransactionScope(db.DB, publisher),
		batchRepo, activityRepo, masterRepo, skuRepo, orderRepo,
		resolver, checker, processor, batchConfig, log,
	)
	batchService.SetMetrics(planningMetrics)
	batchService.SetIdempotencyStore(idempotencyStore)

	orderService := orderapp.NewOrderService(persistence.NewGormOrderTransactionScope(db.DB), orderRepo, log)

	planningService := planningapp.NewPlanningService(skuRepo, masterRepo, orderRepo, resolver, aggregator, checker, log)
	planningService.SetWorkbookWriter(export.NewBOMWorkbookWriter())

	// Health checks
	checks := map[string]handler.Pinger{"database": db}
	if redisStore, ok := idempotencyStore.(*cache.RedisIdempotencyStore); ok {
		checks["redis"] = redisStore
	}

	// Set Gin mode
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup custom validator
	middleware.SetupValidator()

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}

	engine := router.NewEngine(router.Options{
		Logger:      log,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     cfg.Telemetry.TracingEnabled,
		Profiling:   cfg.Telemetry.ProfilingEnabled && cfg.Telemetry.SpanProfiles,
		Meter:       meterProvider.Meter(cfg.Telemetry.ServiceName),
		CORS:        corsConfig,
		MaxBodySize: cfg.HTTP.MaxBodySize,
		Auth: middleware.JWTMiddlewareConfig{
			Validator: auth.NewJWTVerifier(cfg.JWT),
			Required:  cfg.JWT.Required,
			Logger:    log,
		},
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},
	}, router.Handlers{
		Batch:    handler.NewBatchHandler(batchService, log),
		Order:    handler.NewOrderHandler(orderService, log),
		Planning: handler.NewPlanningHandler(planningService, log),
		Outbox:   handler.NewOutboxHandler(processor, log),
		System:   handler.NewSystemHandler(cfg.App.Name, version, checks),
	})

	// Start the outbox processor
	processorCtx, cancelProcessor := context.WithCancel(ctx)
	defer cancelProcessor()
	if cfg.Outbox.Enabled {
		if err := processor.Start(processorCtx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	} else {
		log.Warn("Outbox processor disabled, batch follow-ups only run on the synchronous dispatch")
	}

	// Nightly maintenance
	var maintenance *scheduler.Scheduler
	var maintenanceTrigger *scheduler.CronTrigger
	if cfg.Maintenance.Enabled {
		hour, minute, err := scheduler.ParseCronSchedule(cfg.Maintenance.Schedule)
		if err != nil {
			log.Fatal("Invalid maintenance schedule", zap.Error(err))
		}
		maintenance = scheduler.NewScheduler(scheduler.Config{
			Workers:       cfg.Maintenance.Workers,
			JobTimeout:    cfg.Maintenance.JobTimeout,
			RetryAttempts: cfg.Maintenance.RetryAttempts,
			RetryDelay:    cfg.Maintenance.RetryDelay,
		}, scheduler.NewMaintenanceExecutor(planningService, log), log)
		if err := maintenance.Start(ctx); err != nil {
			log.Fatal("Failed to start maintenance scheduler", zap.Error(err))
		}
		triggerConfig := scheduler.DefaultCronTriggerConfig()
		triggerConfig.Hour, triggerConfig.Minute = hour, minute
		maintenanceTrigger = scheduler.NewCronTrigger(triggerConfig, maintenance, log)
		if err := maintenanceTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start maintenance trigger", zap.Error(err))
		}
		log.Info("Maintenance scheduled", zap.Time("next_run_at", maintenanceTrigger.NextRunAt()))
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting server",
			zap.String("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if cfg.Outbox.Enabled {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop outbox processor", zap.Error(err))
		}
	}
	if maintenance != nil {
		if err := maintenanceTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop maintenance trigger", zap.Error(err))
		}
		if err := maintenance.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop maintenance scheduler", zap.Error(err))
		}
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Failed to stop profiler", zap.Error(err))
	}
	shutdownTelemetry(shutdownCtx, log, tracerProvider.Shutdown, meterProvider.Shutdown, loggerProvider.Shutdown)

	log.Info("Server exited gracefully")
}

func shutdownTelemetry(ctx context.Context, log *zap.Logger, shutdowns ...func(context.Context) error) {
	for _, shutdown := range shutdowns {
		if err := shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
