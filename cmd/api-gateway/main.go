package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sensei-assign-api/api/swagger"
	"github.com/noah-isme/sensei-assign-api/internal/bootstrap"
	"github.com/noah-isme/sensei-assign-api/internal/handler"
	"github.com/noah-isme/sensei-assign-api/internal/middleware"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	"github.com/noah-isme/sensei-assign-api/pkg/config"
	"github.com/noah-isme/sensei-assign-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sensei-assign-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sensei-assign-api/pkg/middleware/requestid"
)

// @title Sensei Assignment API
// @version 1.0.0
// @description Ranks senseis for trips, assigns them and keeps backup coverage filled.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to build services", zap.Error(err))
	}
	defer services.Close()

	services.Queue.Start(ctx)
	if cfg.BackupScan.Enabled {
		services.Coordinator.StartScheduler(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(services.Metrics))

	checks := map[string]handler.Pinger{"postgres": services.DB}
	if services.Redis != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return services.Redis.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(services.Metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), services, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func registerRoutes(api *gin.RouterGroup, services *bootstrap.Services, logr *zap.Logger) {
	trips := handler.NewTripHandler(services.Ranking, services.Export, services.Assignment, logr)
	backups := handler.NewBackupHandler(services.Coordinator)
	alerts := handler.NewAlertHandler(services.Alerts)
	settings := handler.NewAutomationSettingsHandler(services.Settings)

	api.Use(middleware.JWT(services.Auth))
	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleOperator)
	admins := middleware.RequireRoles(models.RoleAdmin)

	api.GET("/trips/:id/candidates", readers, trips.Candidates)
	api.GET("/trips/:id/candidates/export", readers, trips.ExportCandidates)
	api.POST("/trips/:id/assign", admins, trips.Assign)

	api.GET("/trips/:id/backup-requests", readers, backups.ListRequests)
	api.POST("/trips/:id/backup-requests", admins, backups.CreateRequest)
	api.POST("/backup-requests/:id/respond", admins, backups.Respond)
	api.POST("/backup-scan/run", admins, backups.RunScan)

	api.GET("/alerts", readers, alerts.List)
	api.POST("/alerts/:id/resolve", admins, alerts.Resolve)

	api.GET("/automation-settings", readers, settings.Get)
	api.PUT("/automation-settings", admins, settings.Update)
}
