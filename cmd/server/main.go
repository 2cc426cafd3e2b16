package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/domain/ledger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/cache"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/config"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/email"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/export"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/logger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/persistence"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/printing"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/scheduler"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/storage"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/telemetry"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/interfaces/http/handler"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/interfaces/http/middleware"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting invoice ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
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
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = logsProvider.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileTypes:    cfg.Telemetry.ProfilingTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.ProfilingSpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("invoice-ledger"))
	if err != nil {
		log.Fatal("Failed to register ledger metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)

	if err := printing.ValidateCurrency(cfg.Ledger.Currency); err != nil {
		log.Fatal("Invalid ledger currency", zap.Error(err))
	}
	renderer, err := printing.NewInvoiceRenderer(cfg.PDF, log)
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer func() {
		_ = renderer.Close()
	}()

	sender := email.NewResendSender(cfg.Email, log)
	if !sender.Configured() {
		log.Warn("Email provider not configured, invoice sending is disabled")
	}

	var archive appledger.DocumentArchive
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare archive bucket", zap.Error(err))
		}
		archive = s3Archive
	} else if cfg.Storage.LocalPath != "" {
		fsArchive, err := storage.NewFileSystemArchive(cfg.Storage.LocalPath, log)
		if err != nil {
			log.Fatal("Failed to initialize local archive", zap.Error(err))
		}
		archive = fsArchive
	}

	audit := appledger.NewAuditLogger(auditRepo, log, ledgerMetrics)
	invoiceService := appledger.NewInvoiceService(appledger.InvoiceServiceConfig{
		InvoiceRepo: invoiceRepo,
		QuoteRepo:   quoteRepo,
		AuditLogger: audit,
		Terms: ledger.InvoiceTerms{
			TaxRate:          cfg.Ledger.TaxRate,
			PaymentTermsDays: cfg.Ledger.PaymentTermsDays,
		},
		MaxAttempts: cfg.Ledger.PaymentMaxAttempts,
		Metrics:     ledgerMetrics,
		Logger:      log,
	})
	paymentService := appledger.NewPaymentService(appledger.PaymentServiceConfig{
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		TxScope:     persistence.NewGormTransactionScope(db.DB),
		AuditLogger: audit,
		MaxAttempts: cfg.Ledger.PaymentMaxAttempts,
		Metrics:     ledgerMetrics,
		Logger:      log,
	})
	sendService := appledger.NewSendService(appledger.SendServiceConfig{
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		Renderer:    renderer,
		Sender:      sender,
		Archive:     archive,
		AuditLogger: audit,
		MaxAttempts: cfg.Ledger.PaymentMaxAttempts,
		CompanyName: cfg.Ledger.CompanyName,
		Currency:    cfg.Ledger.Currency,
		Metrics:     ledgerMetrics,
		Logger:      log,
	})
	exportService := appledger.NewExportService(invoiceRepo, export.NewAccountingCSV(export.AccountingCSVConfig{
		RevenueNominalCode: cfg.Ledger.RevenueNominalCode,
		TaxNominalCode:     cfg.Ledger.TaxNominalCode,
		TaxCode:            cfg.Ledger.TaxCode,
	}), log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	overdueScheduler, err := scheduler.NewOverdueScheduler(scheduler.OverdueSchedulerConfig{
		Enabled:    cfg.Scheduler.OverdueEnabled,
		Interval:   cfg.Scheduler.OverdueInterval,
		JobTimeout: cfg.Scheduler.JobTimeout,
		RunOnStart: true,
	}, invoiceService, scheduler.NewJobMetrics(registry), log)
	if err != nil {
		log.Fatal("Failed to create overdue scheduler", zap.Error(err))
	}

	idempotency := middleware.IdempotencyMiddlewareConfig{TTL: cfg.Idempotency.TTL, Logger: log}
	if cfg.Idempotency.Enabled {
		store, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.IsDevelopment()),
		).Build(cfg.Idempotency.Backend)
		if err != nil {
			log.Fatal("Failed to initialize idempotency store", zap.Error(err))
		}
		defer func() {
			_ = store.Close()
		}()
		idempotency.Store = store
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", db.Ping)

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		DefaultTenant:  cfg.Ledger.DefaultTenant(),
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Idempotency: idempotency,
		Registry:    registry,
	}, router.Handlers{
		Invoice: handler.NewInvoiceHandler(invoiceService, sendService, exportService),
		Payment: handler.NewPaymentHandler(paymentService),
		Audit:   handler.NewAuditHandler(audit),
		System:  systemHandler,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	if err := overdueScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start overdue scheduler", zap.Error(err))
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := overdueScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Overdue scheduler did not stop cleanly", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Failed to stop profiler", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush logs", zap.Error(err))
	}
}
