// Package api wires the HTTP surface: routes, handlers, and middleware.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/opspulse/opspulse-go/internal/api/handlers"
	"github.com/opspulse/opspulse-go/internal/cache"
	"github.com/opspulse/opspulse-go/internal/database"
	"github.com/opspulse/opspulse-go/internal/detection"
	"github.com/opspulse/opspulse-go/internal/middleware"
	"github.com/opspulse/opspulse-go/internal/services"
)

// Dependencies carries everything the HTTP layer needs. Database, Redis,
// cache, and alerts may be nil; the detection endpoints keep working without
// them.
type Dependencies struct {
	Engine      *detection.Engine
	Repo        *database.DetectionRepository
	EventsCache *cache.EventsCache
	Alerts      *services.AlertService
	DB          *database.PostgresDB
	Redis       *database.RedisClient
	Auth        *middleware.AuthMiddleware
	Logger      *logrus.Logger
}

// SetupRoutes registers all endpoints on the router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis)
	detectionHandler := handlers.NewDetectionHandler(deps.Engine, deps.Repo, deps.EventsCache, deps.Alerts, deps.Logger)
	methodsHandler := handlers.NewMethodsHandler(deps.Engine)
	eventsHandler := handlers.NewEventsHandler(deps.Repo, deps.EventsCache, deps.Logger)

	router.GET("/health", healthHandler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/detect", detectionHandler.HandleDetect)
		v1.GET("/methods", methodsHandler.ListMethods)
		v1.GET("/events", eventsHandler.ListEvents)
		v1.GET("/history", eventsHandler.ListHistory)

		admin := v1.Group("/admin")
		if deps.Auth != nil {
			admin.Use(deps.Auth.RequireAuth())
		}
		{
			admin.DELETE("/history", eventsHandler.PurgeHistory)
		}
	}
}
