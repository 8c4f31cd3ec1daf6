package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushub/clubhub-api/api/swagger"
	"github.com/campushub/clubhub-api/internal/handler"
	"github.com/campushub/clubhub-api/internal/middleware"
	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/repository"
	"github.com/campushub/clubhub-api/internal/scheduler"
	"github.com/campushub/clubhub-api/internal/service"
	"github.com/campushub/clubhub-api/pkg/cache"
	"github.com/campushub/clubhub-api/pkg/config"
	"github.com/campushub/clubhub-api/pkg/database"
	"github.com/campushub/clubhub-api/pkg/jobs"
	"github.com/campushub/clubhub-api/pkg/logger"
	corsmiddleware "github.com/campushub/clubhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/clubhub-api/pkg/middleware/requestid"
	"github.com/campushub/clubhub-api/pkg/storage"
)

// @title ClubHub API
// @version 1.0.0
// @description Student club discovery and account request management
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	clubRepo := repository.NewClubRepository(db)
	eventRepo := repository.NewEventRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	validate := validator.New()
	metricsService := service.NewMetricsService()
	repository.SetQueryObserver(metricsService.ObserveDBQuery)
	cacheService := service.NewCacheService(cacheRepo, metricsService, time.Minute, logr, redisClient != nil)

	auditService := service.NewAuditService(userRepo, logr, jobs.PoolConfig{Workers: 2, BufferSize: 64})
	auditService.Start(ctx)
	defer auditService.Stop()

	availabilityService := service.NewAvailabilityService(userRepo, requestRepo, cacheService, logr, service.AvailabilityConfig{
		CacheEnabled: cfg.Availability.CacheEnabled,
		CacheTTL:     cfg.Availability.CacheTTL,
	})
	signupService := service.NewSignupService(userRepo, requestRepo, auditService, metricsService, availabilityService, validate, logr)
	approvalService := service.NewApprovalService(requestRepo, userRepo, auditService, metricsService, validate, logr, service.ApprovalConfig{
		ActivationTokenTTL: cfg.Activation.TokenTTL,
	})
	authService := service.NewAuthService(userRepo, tokenRepo, auditService, metricsService, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clubhub-api",
	})
	userService := service.NewUserService(userRepo, auditService, validate, logr)
	clubService := service.NewClubService(clubRepo, logr)
	eventService := service.NewEventService(eventRepo, cacheService, logr, service.EventConfig{
		CacheEnabled: cfg.Events.CacheEnabled,
		CacheTTL:     cfg.Events.CacheTTL,
		DefaultLimit: cfg.Events.DefaultLimit,
	})

	exportStore, err := storage.NewExportStore(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewDownloadSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportService := service.NewExportService(requestRepo, exportStore, signer, logr, service.ExportConfig{
		Enabled:      cfg.Exports.Enabled,
		RetentionTTL: cfg.Exports.SignedURLTTL,
	})

	// Background maintenance
	maint := scheduler.New(tokenRepo, userRepo, exportService, logr, scheduler.Config{
		Enabled:         cfg.Scheduler.Enabled,
		CleanupSchedule: cfg.Scheduler.CleanupSchedule,
	})
	if err := maint.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to start scheduler", "error", err)
	}
	defer maint.Stop()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, userService)
	signupHandler := handler.NewSignupHandler(signupService, availabilityService)
	adminHandler := handler.NewAdminHandler(approvalService, exportService, metricsService)
	userHandler := handler.NewUserHandler(userService)
	clubHandler := handler.NewClubHandler(clubService)
	eventHandler := handler.NewEventHandler(eventService)
	metricsHandler := handler.NewMetricsHandler(metricsService, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", signupHandler.Signup)
			auth.GET("/signup/availability", signupHandler.Availability)
			auth.POST("/login", authHandler.Login)
			auth.POST("/activate", authHandler.Activate)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
			auth.PUT("/password", middleware.JWT(authService), authHandler.ChangePassword)
			auth.GET("/me", middleware.JWT(authService), authHandler.Me)
		}

		api.GET("/clubs", clubHandler.List)
		api.GET("/clubs/mine", middleware.JWT(authService), middleware.RequireRoles(models.RoleOrganizer), clubHandler.MyClub)
		api.GET("/clubs/:id", clubHandler.Get)

		api.GET("/events", eventHandler.List)
		api.GET("/events/:id", eventHandler.Get)

		users := api.Group("/users")
		{
			users.GET("/search", userHandler.Search)
			users.PUT("/me", middleware.JWT(authService), userHandler.UpdateProfile)
			users.GET("/:username", userHandler.GetProfile)
		}

		admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/requests", adminHandler.ListRequests)
			admin.GET("/requests/export", middleware.Audit(auditService, models.AuditActionRequestExport, "account_requests"), adminHandler.ExportRequests)
			admin.GET("/requests/:id", adminHandler.GetRequest)
			admin.POST("/requests/:id/approve", adminHandler.ApproveRequest)
			admin.POST("/requests/:id/reject", adminHandler.RejectRequest)
			admin.GET("/users", userHandler.List)
			admin.DELETE("/users/:id", userHandler.Deactivate)
			admin.GET("/metrics", adminHandler.SystemMetrics)
		}

		// Download tokens are self-authenticating.
		api.GET("/exports/download", adminHandler.DownloadExport)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
