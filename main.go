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

	"github.com/medicalink/staff-backend/internal/di"
	"github.com/medicalink/staff-backend/internal/domain"
	"github.com/medicalink/staff-backend/internal/middleware"
	"github.com/medicalink/staff-backend/pkg/config"
	"github.com/medicalink/staff-backend/pkg/database"
	"github.com/medicalink/staff-backend/pkg/logger"
	"github.com/medicalink/staff-backend/pkg/redis"
	"github.com/medicalink/staff-backend/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Staff Backend...")

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
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  10 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis connection
	rdb, err := redis.NewClient(ctx, &redis.Config{
		Host:           cfg.Redis.Host,
		Port:           cfg.Redis.Port,
		Username:       cfg.Redis.Username,
		Password:       cfg.Redis.Password,
		DB:             cfg.Redis.DB,
		PoolSize:       cfg.Redis.PoolSize,
		MinIdleConns:   cfg.Redis.MinIdleConns,
		ConnectTimeout: cfg.Redis.ConnectTimeout,
		CommandTimeout: cfg.Redis.CommandTimeout,
		MaxRetries:     3,
		RetryInterval:  time.Second,
	}, appLog)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer rdb.Close()
	appLog.Info(fmt.Sprintf("Redis connected (%s)", cfg.Redis.Addr()))

	// Build dependency injection container
	container, err := di.NewContainer(cfg, db, rdb)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to build container: %v", err))
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	registerRoutes(router, container)

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
		appLog.Info(fmt.Sprintf("Staff Backend listening on %s", addr))
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

// registerRoutes mounts probes, the auth surface and staff management.
func registerRoutes(router *gin.Engine, c *di.Container) {
	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)
	router.GET("/keep-alive", c.HealthHandler.KeepAlive)

	authn := middleware.Authenticate(c.AuthService, c.Tokens)
	limit := func(l middleware.RouteLimit) gin.HandlerFunc {
		return middleware.RateLimit(c.RateLimiter, l)
	}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", limit(middleware.LoginLimit), c.AuthHandler.Login)
			auth.POST("/refresh", limit(middleware.RefreshLimit), c.AuthHandler.Refresh)
			auth.POST("/reset-password", limit(middleware.ResetPasswordLimit), c.AuthHandler.ResetPassword)

			auth.POST("/logout", limit(middleware.LogoutLimit), authn, c.AuthHandler.Logout)
			auth.POST("/logout-all", limit(middleware.LogoutAllLimit), authn, c.AuthHandler.LogoutAll)
			auth.POST("/change-password", limit(middleware.ChangePasswordLimit), authn, c.AuthHandler.ChangePassword)
			auth.GET("/profile", authn, c.AuthHandler.Profile)
		}

		staff := v1.Group("/staff-accounts")
		staff.Use(authn)
		{
			staff.GET("", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.List)
			staff.GET("/statistics", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.Statistics)
			staff.GET("/:id", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.Get)
			staff.POST("", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.Create)
			staff.PATCH("/:id", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.Update)
			staff.POST("/:id/reset-password", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.ResetPassword)
			staff.POST("/:id/restore", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.Restore)
			staff.DELETE("/:id", middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin), c.StaffHandler.Remove)
		}
	}
}
