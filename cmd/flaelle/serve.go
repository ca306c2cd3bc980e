package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/flaelle/flaelle/internal/app"
	"github.com/flaelle/flaelle/internal/audit"
	audithttp "github.com/flaelle/flaelle/internal/audit/http"
	"github.com/flaelle/flaelle/internal/auth"
	"github.com/flaelle/flaelle/internal/catalog"
	"github.com/flaelle/flaelle/internal/costing"
	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/observability"
	"github.com/flaelle/flaelle/internal/platform/cache"
	"github.com/flaelle/flaelle/internal/platform/db"
	"github.com/flaelle/flaelle/internal/platform/storage"
	"github.com/flaelle/flaelle/internal/purchasing"
	"github.com/flaelle/flaelle/internal/reports"
	"github.com/flaelle/flaelle/internal/shared"
	"github.com/flaelle/flaelle/jobs"
	"github.com/flaelle/flaelle/migrations"
	"github.com/flaelle/flaelle/report"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		applied, err := db.Migrate(ctx, dbpool, migrations.Files)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", slog.Any("versions", applied))
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "flaelle_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.SessionSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	authService, err := auth.NewService(auth.Account{Username: cfg.AdminUser, PasswordHash: cfg.AdminPasswordHash}, auditLogger, logger)
	if err != nil {
		return err
	}
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	ledgerService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, idempotencyStore, inventory.ServiceConfig{
		Logger:  logger,
		Metrics: metrics,
	})
	ledgerHandler := inventory.NewHandler(logger, ledgerService)

	costingCfg := costing.ServiceConfig{Logger: logger, Metrics: metrics}
	if cfg.DistributionLocks {
		costingCfg.Locker = cache.NewLocker(redisClient, 0)
	}
	costingService := costing.NewService(costing.NewRepository(dbpool), auditLogger, costingCfg)
	costingHandler := costing.NewHandler(logger, costingService)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), auditLogger, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	var blobs catalog.BlobStore
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
		if err != nil {
			return err
		}
		defer func() {
			if err := gcs.Close(); err != nil {
				logger.Warn("gcs close", slog.Any("error", err))
			}
		}()
		blobs = gcs
	} else {
		logger.Warn("GCS_BUCKET not set, image upload disabled")
	}
	uploadHandler := catalog.NewUploadHandler(logger, blobs, time.Now)

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reports.NewRepository(dbpool), reportsCache, logger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	mailQueue := jobs.NewMailQueue(redisOpts)
	defer func() {
		if err := mailQueue.Close(); err != nil {
			logger.Warn("mail queue close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	pdfClient := report.NewClient(cfg.GotenbergURL)
	purchasingService := purchasing.NewService(purchasing.NewRepository(dbpool), purchasing.ServiceConfig{
		Renderer:   pdfClient,
		Mail:       mailQueue,
		Recipients: cfg.OrderEmailTo,
		Logger:     logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		AuditHandler:    audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		CatalogHandler:  catalogHandler,
		UploadHandler:   uploadHandler,
		LedgerHandler:   ledgerHandler,
		CostingHandler:  costingHandler,
		ReportsHandler:  reportsHandler,
		ReportsCache:    reportsCache,
		PurchaseHandler: purchasing.NewHandler(logger, purchasingService),
		RendererHandler: report.NewHandler(pdfClient, logger),
		JobHandler:      jobs.NewStatusHandler(inspector, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
