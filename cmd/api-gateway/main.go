package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-gatepass-api/api/swagger"
	"github.com/noah-isme/sma-gatepass-api/internal/handler"
	"github.com/noah-isme/sma-gatepass-api/internal/middleware"
	"github.com/noah-isme/sma-gatepass-api/internal/models"
	"github.com/noah-isme/sma-gatepass-api/internal/repository"
	"github.com/noah-isme/sma-gatepass-api/internal/service"
	"github.com/noah-isme/sma-gatepass-api/pkg/cache"
	"github.com/noah-isme/sma-gatepass-api/pkg/config"
	"github.com/noah-isme/sma-gatepass-api/pkg/database"
	"github.com/noah-isme/sma-gatepass-api/pkg/jobs"
	"github.com/noah-isme/sma-gatepass-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-gatepass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-gatepass-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-gatepass-api/pkg/storage"
)

// @title SMA Gate Pass API
// @version 0.1.0
// @description Issuance and tracking of school gate passes
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The service degrades to uncached reads when Redis is unreachable.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	gatePassRepo := repository.NewGatePassRepository(db, repository.NewPassSequenceRepository())

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)
	}

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-gatepass-api",
	})

	auditDispatcher := service.NewAuditDispatcher(userRepo, logr, jobs.QueueConfig{Workers: 2})
	auditDispatcher.Start(context.Background())
	defer auditDispatcher.Stop()

	gatePassSvc := service.NewGatePassService(gatePassRepo, directoryRepo, auditDispatcher, logr, service.GatePassServiceConfig{
		Scope:        cfg.GatePass.Scope,
		NumberPrefix: cfg.GatePass.NumberPrefix,
		EditWhileOut: cfg.GatePass.EditWhileOut,
	}).WithMetrics(metricsSvc)

	dashboardSvc := service.NewDashboardService(gatePassRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(gatePassSvc, exportStorage, signer, service.ExportConfig{
		ResultTTL:  cfg.Exports.ResultTTL,
		SchoolName: cfg.Exports.SchoolName,
	}, logr)

	// Reap expired export artifacts hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			removed, err := exportSvc.Cleanup(0)
			if err != nil {
				logr.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("export cleanup removed artifacts", "count", len(removed))
			}
		}
	}()

	authHandler := handler.NewAuthHandler(authSvc)
	gatePassHandler := handler.NewGatePassHandler(gatePassSvc, dashboardSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		// Signed downloads carry their own credential in the token.
		api.GET("/export/:token", exportHandler.Download)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/gate-passes", gatePassHandler.List)
		authed.GET("/gate-passes/export",
			middleware.Audit(userRepo, models.AuditActionPassExport, "gate_pass_export"),
			exportHandler.Register)
		authed.GET("/gate-passes/:id", gatePassHandler.Get)
		authed.GET("/gate-passes/:id/slip", exportHandler.Slip)
		authed.GET("/classes/:id/students", gatePassHandler.ClassRoster)

		if cfg.Dashboard.Enabled {
			authed.GET("/dashboard/gate", dashboardHandler.Gate)
		}
	}

	frontDesk := authed.Group("")
	frontDesk.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleFrontOffice))
	{
		frontDesk.POST("/gate-passes", gatePassHandler.Issue)
		frontDesk.PATCH("/gate-passes/:id", gatePassHandler.Edit)
		frontDesk.POST("/gate-passes/:id/out", gatePassHandler.MarkOut)
		frontDesk.POST("/gate-passes/:id/in", gatePassHandler.MarkIn)
		frontDesk.POST("/gate-passes/:id/cancel", gatePassHandler.Cancel)
	}

	ops := authed.Group("")
	ops.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		ops.GET("/ops/metrics", dashboardHandler.MetricsSnapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "scope", cfg.GatePass.Scope)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
