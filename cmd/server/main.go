package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/stemsi/course-planner/internal/config"
	"github.com/stemsi/course-planner/internal/database"
	"github.com/stemsi/course-planner/internal/handler"
	"github.com/stemsi/course-planner/internal/logger"
	"github.com/stemsi/course-planner/internal/metrics"
	"github.com/stemsi/course-planner/internal/middleware"
	"github.com/stemsi/course-planner/internal/repository"
	"github.com/stemsi/course-planner/internal/router"
	"github.com/stemsi/course-planner/internal/schedule"
	"github.com/stemsi/course-planner/internal/service"
	"github.com/stemsi/course-planner/internal/validator"
	"github.com/stemsi/course-planner/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Course Planner")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Apply Migrations ──────────────────────────────────────────────
	if cfg.AutoMigrate {
		version, dirty, err := database.MigrateUp(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema migrated")
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Metrics ───────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	sectionRepo := repository.NewSectionRepository(pool)
	importRepo := repository.NewCatalogImportRepository(pool)
	sessionRepo := repository.NewSessionRepository(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	parser := schedule.NewParser(schedule.WithCacheObserver(m.ObserveParseCache))
	caps := schedule.CreditCaps{Single: cfg.CreditCapSingle, Double: cfg.CreditCapDouble}

	tokenService := service.NewSessionTokenService(cfg.SessionSecret, cfg.SessionTTL)
	catalogService := service.NewCatalogService(sectionRepo, parser, cfg.CatalogPageSize, log)
	plannerService := service.NewPlannerService(sessionRepo, catalogService, tokenService, parser, caps, cfg.SessionTTL, m, log)
	exportService := service.NewExportService(plannerService, log)
	importService := service.NewImportService(importRepo, rdb, cfg.UploadDir, cfg.MaxUploadBytes, log)
	importer := service.NewCatalogImporter(sectionRepo, rdb, parser, log)

	// Load the catalog BEFORE accepting traffic. An empty catalog is not
	// fatal: listings report CATALOG_EMPTY until the first import.
	if err := catalogService.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("Catalog load failed")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(plannerService),
		Catalog: handler.NewCatalogHandler(catalogService, plannerService),
		Import:  handler.NewImportHandler(importService),
		Planner: handler.NewPlannerHandler(plannerService, exportService),
		WS:      handler.NewWSHandler(plannerService, sessionRepo, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(
			map[string]handler.HealthCheck{
				"postgres": pool.Ping,
				"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			},
			catalogService,
			func(ctx context.Context) (int64, error) {
				return rdb.LLen(ctx, config.WorkerKey.CatalogImportQueue).Result()
			},
			log,
		),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	importWorker := worker.NewCatalogImportWorker(rdb, importRepo, importer, m, log)
	wg.Add(2)
	go func() {
		defer wg.Done()
		importWorker.Start(workerCtx)
	}()
	go func() {
		defer wg.Done()
		catalogService.ListenForUpdates(workerCtx, rdb)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	uploadLimiter := middleware.NewRateLimiter(5, time.Minute)
	defer uploadLimiter.Stop()

	r := router.SetupRouter(handlers, router.Deps{
		Tokens:        tokenService,
		Metrics:       m,
		Gatherer:      reg,
		UploadLimiter: uploadLimiter,
		Log:           log,
	}, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; a running import finishes first.
	workerCancel()
	wg.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
