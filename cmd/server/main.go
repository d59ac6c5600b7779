package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/opspulse/opspulse-go/internal/api"
	"github.com/opspulse/opspulse-go/internal/cache"
	"github.com/opspulse/opspulse-go/internal/config"
	"github.com/opspulse/opspulse-go/internal/database"
	"github.com/opspulse/opspulse-go/internal/detection"
	"github.com/opspulse/opspulse-go/internal/logging"
	"github.com/opspulse/opspulse-go/internal/middleware"
	"github.com/opspulse/opspulse-go/internal/services"
	"github.com/opspulse/opspulse-go/internal/telemetry"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	shutdownTelemetry, err := telemetry.Init(context.Background(), cfg.Telemetry, cfg.Environment)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize telemetry")
	}

	// Postgres and Redis are optional at startup: detection stays up without
	// persistence and the health endpoint reports the degradation.
	var db *database.PostgresDB
	var repo *database.DetectionRepository
	if db, err = database.NewPostgresConnection(cfg.Database); err != nil {
		logger.WithError(err).Warn("Running without PostgreSQL, persistence disabled")
		db = nil
	} else {
		defer db.Close()
		repo = database.NewDetectionRepository(db.Pool)
	}

	var redisClient *database.RedisClient
	var eventsCache *cache.EventsCache
	if redisClient, err = database.NewRedisConnection(cfg.Redis); err != nil {
		logger.WithError(err).Warn("Running without Redis, events cache disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
		eventsCache = cache.NewEventsCache(redisClient.Client, cfg.Redis.EventTTLDuration(), logger)
	}

	engine := detection.NewEngine(cfg.Detection, logger)
	alerts := services.NewAlertService(cfg.Alerts, logger)
	auth := middleware.NewAuthMiddleware(cfg.Security.JWTSecret)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(telemetry.ServiceName))
	}

	api.SetupRoutes(router, api.Dependencies{
		Engine:      engine,
		Repo:        repo,
		EventsCache: eventsCache,
		Alerts:      alerts,
		DB:          db,
		Redis:       redisClient,
		Auth:        auth,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := shutdownTelemetry(ctx); err != nil {
		logger.WithError(err).Warn("Telemetry shutdown failed")
	}

	logger.Info("Server exited")
}
