package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prohmpiriya/auth-sentry/internal/di"
	"github.com/prohmpiriya/auth-sentry/internal/domain"
	"github.com/prohmpiriya/auth-sentry/internal/middleware"
	"github.com/prohmpiriya/auth-sentry/pkg/config"
	"github.com/prohmpiriya/auth-sentry/pkg/database"
	"github.com/prohmpiriya/auth-sentry/pkg/logger"
	pkgredis "github.com/prohmpiriya/auth-sentry/pkg/redis"
	"github.com/prohmpiriya/auth-sentry/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting auth-sentry...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Initialize database connection
	db, err := database.NewPostgres(ctx, &cfg.Database, cfg.OTel.Enabled)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Apply schema migrations
	if err := database.RunMigrations(ctx, &cfg.Database); err != nil {
		appLog.Fatal(fmt.Sprintf("Migrations failed: %v", err))
	}
	appLog.Info("Migrations applied")

	// Redis is optional; rate limiting degrades to per-instance counters
	// without it.
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		appLog.Warn(fmt.Sprintf("Redis unavailable, using local rate limiting: %v", err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Build dependency injection container
	container := di.NewContainer(cfg, db, redisClient)

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	router.Use(middleware.CORS())

	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	// Health and metrics endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", container.RateLimiters.Register, container.AuthHandler.Register)
			auth.POST("/login", container.RateLimiters.Login, container.AuthHandler.Login)
			auth.POST("/refresh", middleware.RefreshGuard(container.TokenCodec), container.AuthHandler.Refresh)
			auth.GET("/verify-email", container.AuthHandler.VerifyEmail)
			auth.POST("/resend-verification", container.RateLimiters.Resend, container.AuthHandler.ResendVerification)

			protected := auth.Group("")
			protected.Use(middleware.AuthRequired(container.AuthService))
			{
				protected.POST("/logout", container.AuthHandler.Logout)
			}
		}

		users := v1.Group("/users")
		users.Use(middleware.AuthRequired(container.AuthService))
		{
			users.GET("/me", container.UserHandler.Me)
			users.GET("", middleware.RequireRoles(domain.RoleAdmin), container.UserHandler.List)
			users.GET("/dashboard", middleware.RequireRoles(domain.RoleAdmin, domain.RoleModerator), container.UserHandler.Dashboard)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("auth-sentry listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
