package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	leadapp "github.com/energyadmin/backend/internal/application/lead"
	reportapp "github.com/energyadmin/backend/internal/application/report"
	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/domain/shared/valueobject"
	"github.com/energyadmin/backend/internal/infrastructure/cache"
	"github.com/energyadmin/backend/internal/infrastructure/config"
	"github.com/energyadmin/backend/internal/infrastructure/event"
	"github.com/energyadmin/backend/internal/infrastructure/logger"
	"github.com/energyadmin/backend/internal/infrastructure/persistence"
	"github.com/energyadmin/backend/internal/infrastructure/telemetry"
	"github.com/energyadmin/backend/internal/interfaces/http/handler"
	"github.com/energyadmin/backend/internal/interfaces/http/middleware"
	"github.com/energyadmin/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// leadStore is what the server needs from a lead repository
type leadStore interface {
	lead.Repository
	reportapp.LeadSnapshotter
}

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
		_ = log.Sync()
	}()

	ctx := context.Background()

	// OpenTelemetry: spans and metrics stay in process unless a collector is configured
	telemetryCfg := telemetry.ConfigFrom(cfg.Telemetry)
	tp, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = lp.Bridge(log, telemetryCfg.ServiceName, zapcore.InfoLevel)

	log.Info("Starting lead engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("version", version),
	)

	// Lead repository
	repo, closeRepo, err := openLeadStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to open lead repository", zap.Error(err))
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	currency, err := valueobject.ParseCurrency(cfg.Lead.DefaultCurrency)
	if err != nil {
		log.Fatal("Invalid default currency", zap.Error(err))
	}

	// Application services
	leadService := leadapp.NewService(repo,
		leadapp.WithLogger(log),
		leadapp.WithDefaultCurrency(currency),
		leadapp.WithPhoneRegion(cfg.Lead.PhoneRegion),
	)

	statsCache, closeCache, err := cache.NewDashboardCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.Redis.Required),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to create dashboard cache", zap.Error(err))
	}
	defer func() {
		if err := closeCache(); err != nil {
			log.Error("Error closing dashboard cache", zap.Error(err))
		}
	}()
	dashboardService := reportapp.NewDashboardService(repo,
		reportapp.WithCache(statsCache, cfg.Dashboard.CacheTTL),
		reportapp.WithCurrency(currency),
		reportapp.WithLogger(log),
	)

	// Event bus and handlers
	eventBus := event.NewInMemoryEventBus(log,
		event.WithQueueSize(cfg.Events.QueueSize),
		event.WithWorkers(cfg.Events.Workers),
	)

	invalidation := reportapp.NewCacheInvalidationHandler(dashboardService)
	eventBus.Subscribe(invalidation, invalidation.EventTypes()...)

	leadMetrics, err := telemetry.NewLeadMetrics(mp.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to create lead metrics", zap.Error(err))
	}
	eventBus.Subscribe(leadMetrics, leadMetrics.EventTypes()...)

	log.Info("Event handlers registered",
		zap.Strings("cache_invalidation_events", invalidation.EventTypes()),
		zap.Strings("lead_metrics_events", leadMetrics.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	leadService.SetEventPublisher(eventBus)

	// HTTP handlers
	leadHandler := handler.NewLeadHandler(leadService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(mp.Meter("http.server"))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Middleware order:
	// 1. Recovery - Catch panics
	// 2. RequestID, Actor - request correlation, acting user
	// 3. Tracing, SpanEnricher - server span and its attributes
	// 4. Logger - Log requests with trace id
	// 5. Metrics
	// 6. Security headers, CORS, body limit, rate limit
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Actor())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: telemetryCfg.ServiceName,
		Enabled:     tp.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(httpMetrics)
	security := middleware.DefaultSecurityConfig()
	if cfg.App.Env == "production" {
		security.HSTSMaxAge = 365 * 24 * time.Hour
	}
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimit > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	for _, g := range []*router.DomainGroup{
		router.LeadRoutes(leadHandler),
		router.DashboardRoutes(dashboardHandler),
	} {
		r.Register(g)
		log.Debug("Routes registered",
			zap.String("group", g.Name()),
			zap.String("base_path", r.BasePath()),
			zap.Int("routes", len(g.Routes())),
		)
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush telemetry last so shutdown spans and logs are exported
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}

// openLeadStore returns the repository selected by database.driver and a
// function releasing its connection.
func openLeadStore(cfg *config.Config, log *zap.Logger) (leadStore, func() error, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using in-memory lead repository, leads are lost on restart")
		return persistence.NewMemoryLeadRepository(), func() error { return nil }, nil
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		return nil, nil, err
	}
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.TraceDatabase {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Database.SlowQueryThreshold,
			DBSystem:        cfg.Database.Driver,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	repo := persistence.NewGormLeadRepository(db.DB, cfg.Lead.PhoneRegion)

	// SQL migrations target postgres; SQLite always gets its schema from the models
	if cfg.Database.AutoMigrate || cfg.Database.Driver == config.DriverSQLite {
		if err := repo.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("Lead schema migrated from models")
	}

	return repo, db.Close, nil
}
