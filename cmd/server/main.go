package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arflow/backend/internal/application/syncer"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
	"github.com/arflow/backend/internal/infrastructure/cache"
	"github.com/arflow/backend/internal/infrastructure/config"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/arflow/backend/internal/infrastructure/persistence"
	"github.com/arflow/backend/internal/infrastructure/scheduler"
	"github.com/arflow/backend/internal/infrastructure/storage"
	"github.com/arflow/backend/internal/interfaces/http/handler"
	"github.com/arflow/backend/internal/interfaces/http/middleware"
	"github.com/arflow/backend/internal/interfaces/http/router"
)

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

	log.Info("Starting AR sync engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	applicationRepo := persistence.NewGormApplicationRepository(db.DB)
	changeLogRepo := persistence.NewGormChangeLogRepository(db.DB)
	attachmentRepo := persistence.NewGormAttachmentRepository(db.DB)
	credentialRepo := persistence.NewGormCredentialRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	statusRepo := persistence.NewGormStatusRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	backfillRepo := persistence.NewGormBackfillRepository(db.DB)

	// ERP gateway
	erpClient := acumatica.NewClient(
		acumatica.WithLogger(logger.Named(log, "acumatica")),
		acumatica.WithDetailTimeout(cfg.Sync.DetailTimeout),
	)

	// Session manager shares one ERP session across stateless invocations
	sessionManager := syncer.NewSessionManager(
		credentialRepo,
		sessionRepo,
		erpClient,
		logger.Named(log, "session"),
		syncer.WithSessionTTL(cfg.Sync.SessionTTL),
		syncer.WithRenewalWait(cfg.Sync.RenewalWait),
	)

	// Core sync pipeline
	reconciler := syncer.NewReconciler(customerRepo, invoiceRepo, paymentRepo, changeLogRepo, logger.Named(log, "reconciler"))
	linker := syncer.NewApplicationLinker(erpClient, applicationRepo, invoiceRepo, changeLogRepo, logger.Named(log, "linker"))

	syncService := syncer.NewSyncService(
		sessionManager,
		erpClient,
		reconciler,
		linker,
		statusRepo,
		syncLogRepo,
		logger.Named(log, "sync"),
		syncer.SyncConfig{
			DefaultLookbackMinutes: cfg.Sync.DefaultLookbackMinutes,
			PageSize:               cfg.Sync.PageSize,
			ItemDelay:              cfg.Sync.ItemDelay,
		},
	)

	// Attachment archive is optional; without it backfill records metadata only
	var archive syncer.ArchiveStore
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3ArchiveStore(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize attachment archive", zap.Error(err))
		}
		archive = s3Archive
		log.Info("Attachment archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	backfillService := syncer.NewBackfillService(
		sessionManager,
		erpClient,
		linker,
		paymentRepo,
		attachmentRepo,
		changeLogRepo,
		backfillRepo,
		archive,
		logger.Named(log, "backfill"),
		syncer.BackfillConfig{
			BatchSize: cfg.Backfill.BatchSize,
			ItemDelay: cfg.Backfill.ItemDelay,
		},
	)

	reportService := syncer.NewReportService(applicationRepo, logger.Named(log, "report"))
	credentialService := syncer.NewCredentialService(credentialRepo, erpClient, logger.Named(log, "credential"))

	// In-process scheduler (optional; external schedulers can drive the
	// trigger endpoints instead)
	if cfg.Scheduler.Enabled {
		storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(logger.Named(log, "idempotency")))
		idempotencyStore, err := storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idempotencyStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()

		trigger := scheduler.NewSyncCronTrigger(
			scheduler.SyncCronTriggerConfig{
				SyncInterval:    cfg.Scheduler.SyncInterval,
				JobTimeout:      cfg.Scheduler.JobTimeout,
				BackfillEnabled: true,
			},
			syncService,
			backfillService,
			idempotencyStore,
			logger.Named(log, "scheduler"),
		)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync trigger", zap.Error(err))
			}
		}()
		log.Info("Sync trigger started",
			zap.Duration("sync_interval", cfg.Scheduler.SyncInterval),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so every later layer can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning, for load balancers)
	engine.GET("/health", healthHandler(db, log))

	// API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSyncHandler(syncService)).
		Register(handler.NewBackfillHandler(backfillService)).
		Register(handler.NewCredentialHandler(credentialService)).
		Register(handler.NewReportHandler(reportService)).
		Register(handler.NewSystemHandler(db.DB))
	r.Setup()

	// Create HTTP server with config. WriteTimeout must exceed a full
	// synchronous sync run.
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
