package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pricescout/pricescout/internal/admin"
	"github.com/pricescout/pricescout/internal/analytics"
	"github.com/pricescout/pricescout/internal/app"
	"github.com/pricescout/pricescout/internal/catalog"
	"github.com/pricescout/pricescout/internal/geo"
	"github.com/pricescout/pricescout/internal/merchants"
	"github.com/pricescout/pricescout/internal/observability"
	"github.com/pricescout/pricescout/internal/platform/blob"
	"github.com/pricescout/pricescout/internal/platform/cache"
	"github.com/pricescout/pricescout/internal/platform/db"
	"github.com/pricescout/pricescout/internal/products"
	"github.com/pricescout/pricescout/internal/search"
	"github.com/pricescout/pricescout/internal/shared"
	"github.com/pricescout/pricescout/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "pricescout_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	blobs := blob.NewFSStore(cfg.UploadDir, cfg.BlobBaseURL)
	metrics := observability.NewMetrics()

	geoOpts := geo.Options{
		MaxPlausibleKm: cfg.GeoMaxPlausibleKm,
		FuelKmPerLiter: cfg.FuelKmPerLiter,
		PricePerLiter:  cfg.FuelPricePerLiter,
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	recorder := analytics.NewQueueRecorder(logger, asynqClient, jobs.QueueDefault)
	analyticsService := analytics.NewService(logger, analytics.NewRepository(dbpool))

	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(logger, productRepo, blobs)
	merchantService := merchants.NewService(logger, merchants.NewRepository(dbpool), productRepo, blobs)
	importer := catalog.NewImporter(logger, productRepo, blobs, metrics)
	searchService := search.NewService(logger, search.NewRepository(dbpool), recorder, blobs, geoOpts)
	adminService := admin.NewService(logger, merchantService, productService, analyticsService, cfg.AdminToken)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		MerchantHandler: merchants.NewHandler(logger, merchantService, sessionManager),
		ProductHandler:  products.NewHandler(logger, productService),
		CatalogHandler:  catalog.NewHandler(logger, importer),
		SearchHandler:   search.NewHandler(logger, searchService),
		AdminHandler:    admin.NewHandler(logger, adminService, productService),
		JobHandler:      jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
