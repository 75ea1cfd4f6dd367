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
	inventoryapp "github.com/shadiyar7/repair-platform-sub000/internal/application/inventory"
	orderapp "github.com/shadiyar7/repair-platform-sub000/internal/application/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/cache"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/dispatch"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/erp"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/event"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/logger"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/persistence"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/printing"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/scheduler"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/signature"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/storage"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/telemetry"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/handler"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/middleware"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/shadiyar7/repair-platform-sub000/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:generate swag init -g main.go -d ./,../../internal/interfaces/http/handler,../../internal/interfaces/http/dto,../../internal/application/order,../../internal/application/inventory -o ../../docs --parseInternal

//	@title			Procurement Order API
//	@version		1.0
//	@description	Order lifecycle and integration orchestration for B2B procurement: cart, two-sided contract signing, ERP payment, driver dispatch and delivery.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting procurement order service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Telemetry. Each signal has its own switch; disabled providers keep
	// the global no-op implementations.
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}
	startupCtx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(startupCtx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	metricsCfg := otelCfg
	metricsCfg.Enabled = cfg.Telemetry.MetricsEnabled
	meterProvider, err := telemetry.NewMeterProvider(startupCtx, metricsCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	logsCfg := otelCfg
	logsCfg.Enabled = cfg.Telemetry.LogsEnabled
	loggerProvider, err := telemetry.NewLoggerProvider(startupCtx, logsCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	// Registered first so it runs after every other deferred stop
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Error stopping profiler", zap.Error(err))
		}
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer flushCancel()
		if err := meterProvider.Shutdown(flushCtx); err != nil {
			log.Warn("Error flushing metrics", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(flushCtx); err != nil {
			log.Warn("Error flushing traces", zap.Error(err))
		}
		if err := loggerProvider.Shutdown(flushCtx); err != nil {
			log.Warn("Error flushing logs", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Initialize database connection with the zap-backed GORM logger
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry.DBTraceEnabled, "postgresql", log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis-backed sync locks and webhook dedup. Outside production a
	// missing Redis degrades to process memory.
	coordination, err := cache.NewCoordination(startupCtx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err != nil {
		log.Fatal("Failed to initialize coordination store", zap.Error(err))
	}
	defer func() {
		if err := coordination.Close(); err != nil {
			log.Error("Error closing coordination store", zap.Error(err))
		}
	}()

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	requisiteRepo := persistence.NewGormRequisiteRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)

	// External systems
	signatureClient, err := signature.NewClient(cfg.Signature, log)
	if err != nil {
		log.Fatal("Failed to initialize signature client", zap.Error(err))
	}
	erpClient, err := erp.NewClient(cfg.ERP, log)
	if err != nil {
		log.Fatal("Failed to initialize ERP client", zap.Error(err))
	}

	var dispatcher integration.Dispatcher
	if cfg.Dispatch.Enabled {
		publisher, err := dispatch.Dial(cfg.Dispatch, log)
		if err != nil {
			log.Fatal("Failed to connect to dispatch broker", zap.Error(err))
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("Error closing dispatch publisher", zap.Error(err))
			}
		}()
		dispatcher = publisher
	} else {
		log.Warn("Dispatch broker disabled, driver requests are only logged")
		dispatcher = dispatch.NewLogDispatcher(log)
	}

	var artifacts integration.ArtifactStorage
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ArtifactStorage(startupCtx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize artifact storage", zap.Error(err))
		}
		artifacts = s3Storage
	} else {
		log.Warn("Artifact storage disabled, documents are kept in memory")
		artifacts = storage.NewMemoryArtifactStorage()
	}

	// Document rendering. Without Chrome the renderer stores HTML.
	var pdf printing.PDFConverter
	if cfg.Printing.PDFEnabled {
		chrome, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
			DefaultTimeout: cfg.Printing.Timeout,
			RemoteURL:      cfg.Printing.ChromeRemoteURL,
			NoSandbox:      true,
			Logger:         log,
		})
		if err != nil {
			log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
		}
		defer func() {
			if err := chrome.Close(); err != nil {
				log.Error("Error closing PDF renderer", zap.Error(err))
			}
		}()
		pdf = chrome
	}
	renderer := printing.NewDocumentRenderer(printing.NewTemplateEngine(), pdf, log)

	// Initialize application services
	orderService := orderapp.NewService(orderapp.Collaborators{
		Orders:     orderRepo,
		Products:   productRepo,
		Requisites: requisiteRepo,
		Signature:  signatureClient,
		ERP:        erpClient,
		Dispatch:   dispatcher,
		Renderer:   renderer,
		Artifacts:  artifacts,
		Deliveries: coordination.Idempotency,
	}, orderapp.SettingsFromConfig(cfg), log)
	orderService.SetMetrics(metrics)

	stockService := inventoryapp.NewStockSyncService(
		warehouseRepo,
		stockRepo,
		erpClient,
		coordination.Locker,
		inventoryapp.SettingsFromConfig(cfg.StockSync),
		log,
	)
	stockService.SetMetrics(metrics)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log, event.WithAsync(cfg.Orchestrator.ExternalCallTimeout))

	// Driver search started -> dispatch status notification
	dispatchStatusHandler := orderapp.NewDispatchStatusHandler(dispatcher, metrics, log)
	eventBus.Subscribe(dispatchStatusHandler, dispatchStatusHandler.EventTypes()...)
	log.Info("Event handlers registered",
		zap.Strings("dispatch_status_events", dispatchStatusHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	orderService.SetEventPublisher(eventBus)

	// Stock sync workers and the stale-warehouse sweep
	syncScheduler := scheduler.NewScheduler(scheduler.ConfigFromStockSync(cfg.StockSync), stockService, log)
	if err := syncScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start stock sync scheduler", zap.Error(err))
	}
	defer func() {
		if err := syncScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping stock sync scheduler", zap.Error(err))
		}
	}()
	stockService.SetQueue(syncScheduler)

	sweep := scheduler.NewCronTrigger(cfg.StockSync.SweepInterval, stockService, syncScheduler, log)
	if err := sweep.Start(context.Background()); err != nil {
		log.Fatal("Failed to start stale warehouse sweep", zap.Error(err))
	}
	defer func() {
		if err := sweep.Stop(context.Background()); err != nil {
			log.Error("Error stopping stale warehouse sweep", zap.Error(err))
		}
	}()
	log.Info("Stock sync started",
		zap.Int("workers", cfg.StockSync.Workers),
		zap.Duration("sweep_interval", cfg.StockSync.SweepInterval),
	)

	// Initialize HTTP handlers
	jwtService := auth.NewJWTService(cfg.JWT)
	orderHandler := handler.NewOrderHandler(orderService)
	webhookHandler := handler.NewWebhookHandler(orderService)
	trackingHandler := handler.NewTrackingHandler(orderService)
	stockHandler := handler.NewStockHandler(stockService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", db.Ping).
		AddCheck("coordination", coordination.Ping)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Logger and Recovery - Request-scoped logger, panics as 500
	// 3. Tracing - Server span, error status, caller attributes
	// 4. Metrics - Request counters and latency by route
	// 5. Security, CORS and BodyLimit
	// 6. JWT - Authenticate everything outside the public paths
	// 7. RateLimit - Per caller (if enabled)
	// 8. Profiling - Pyroscope labels by route and role
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(meter))
	securityConfig := middleware.DefaultSecurityConfig()
	if cfg.App.Env == "production" {
		securityConfig.HSTSMaxAge = 365 * 24 * time.Hour
		securityConfig.HSTSIncludeSubdomains = true
	}
	engine.Use(middleware.SecureWithConfig(securityConfig))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	engine.Use(middleware.TracingAttributeInjector())

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = profiler.IsEnabled()
	engine.Use(middleware.ProfilingWithConfig(profilingConfig))

	// Liveness and readiness (outside API versioning)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{Enabled: cfg.Swagger.Enabled}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Register the versioned API
	routes := router.NewRouter(engine, router.WithAPIVersion("v1")).
		RegisterAPI(router.Handlers{
			Order:    orderHandler,
			Webhook:  webhookHandler,
			Tracking: trackingHandler,
			Stock:    stockHandler,
		}).
		Setup()
	log.Info("API routes registered", zap.Int("count", len(routes)))

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
