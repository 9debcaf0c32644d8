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

	"github.com/greenstock-ops/greenstock/internal/activity"
	"github.com/greenstock-ops/greenstock/internal/app"
	"github.com/greenstock-ops/greenstock/internal/insights"
	"github.com/greenstock-ops/greenstock/internal/inventory"
	"github.com/greenstock-ops/greenstock/internal/masterdata/catalog"
	"github.com/greenstock-ops/greenstock/internal/masterdata/employees"
	"github.com/greenstock-ops/greenstock/internal/masterdata/suppliers"
	"github.com/greenstock-ops/greenstock/internal/masterdata/zones"
	"github.com/greenstock-ops/greenstock/internal/observability"
	"github.com/greenstock-ops/greenstock/internal/platform/cache"
	"github.com/greenstock-ops/greenstock/internal/platform/db"
	"github.com/greenstock-ops/greenstock/internal/procurement"
	"github.com/greenstock-ops/greenstock/internal/rbac"
	"github.com/greenstock-ops/greenstock/internal/shared"
	"github.com/greenstock-ops/greenstock/internal/stockaudit"
	"github.com/greenstock-ops/greenstock/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, insights cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	clock := shared.NewZoneClock(cfg.AppTZ)
	recorder := activity.NewRecorder(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, recorder, idempotencyStore, clock)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	auditRepo := stockaudit.NewRepository(pool)
	auditService := stockaudit.NewService(auditRepo, recorder, clock)
	auditHandler := stockaudit.NewHandler(logger, auditService, rbacMiddleware)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, inventoryService, recorder, clock)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware)

	supplierHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool), recorder), rbacMiddleware)
	zoneHandler := zones.NewHandler(logger, zones.NewService(zones.NewRepository(pool), recorder), rbacMiddleware)
	catalogHandler := catalog.NewHandler(logger, catalog.NewService(catalog.NewRepository(pool), recorder), rbacMiddleware)
	employeeHandler := employees.NewHandler(logger, employees.NewService(employees.NewRepository(pool), recorder), rbacMiddleware)

	roleHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	activityService := activity.NewService(activity.NewRepository(pool))
	activityHandler := activity.NewHandler(logger, activityService, rbacMiddleware)

	insightsRepo := insights.NewPGRepository(pool)
	insightsService := insights.NewService(insightsRepo, redisClient, cfg.InsightsCacheTTL, logger)
	insightsHandler := insights.NewHandler(logger, insightsService, rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		InventoryHandler:   inventoryHandler,
		AuditHandler:       auditHandler,
		ProcurementHandler: procurementHandler,
		SupplierHandler:    supplierHandler,
		ZoneHandler:        zoneHandler,
		CatalogHandler:     catalogHandler,
		EmployeeHandler:    employeeHandler,
		RoleHandler:        roleHandler,
		ActivityHandler:    activityHandler,
		InsightsHandler:    insightsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
