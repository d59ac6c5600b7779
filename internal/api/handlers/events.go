package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/opspulse/opspulse-go/internal/cache"
	"github.com/opspulse/opspulse-go/internal/database"
	"github.com/opspulse/opspulse-go/internal/models"
)

// EventsHandler serves persisted events and detection history.
type EventsHandler struct {
	repo        *database.DetectionRepository
	eventsCache *cache.EventsCache
	logger      *logrus.Logger
}

// NewEventsHandler creates an events handler. The cache may be nil.
func NewEventsHandler(repo *database.DetectionRepository, eventsCache *cache.EventsCache, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{
		repo:        repo,
		eventsCache: eventsCache,
		logger:      logger,
	}
}

// EventsResponse is the payload for the events listing.
type EventsResponse struct {
	Events []models.AnomalyEvent `json:"events"`
	Count  int                   `json:"count"`
	Cached bool                  `json:"cached"`
}

// HistoryResponse is the payload for the history listing.
type HistoryResponse struct {
	History []models.DetectionHistory `json:"history"`
	Count   int                       `json:"count"`
}

// ListEvents returns recent events, newest first. Queries for a single
// resource are answered from the cache when its latest run is still there.
func (h *EventsHandler) ListEvents(c *gin.Context) {
	resourceID := c.Query("resource_id")
	limit := parseLimit(c.Query("limit"))

	if resourceID != "" && h.eventsCache != nil {
		if events, hit := h.eventsCache.Get(c.Request.Context(), resourceID); hit {
			if limit > 0 && len(events) > limit {
				events = events[:limit]
			}
			c.JSON(http.StatusOK, EventsResponse{Events: events, Count: len(events), Cached: true})
			return
		}
	}

	events, err := h.repo.ListEvents(c.Request.Context(), resourceID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list anomaly events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}
	if events == nil {
		events = []models.AnomalyEvent{}
	}

	c.JSON(http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}

// ListHistory returns recent detection runs, newest first.
func (h *EventsHandler) ListHistory(c *gin.Context) {
	resourceID := c.Query("resource_id")
	limit := parseLimit(c.Query("limit"))

	history, err := h.repo.ListHistory(c.Request.Context(), resourceID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list detection history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list history"})
		return
	}
	if history == nil {
		history = []models.DetectionHistory{}
	}

	c.JSON(http.StatusOK, HistoryResponse{History: history, Count: len(history)})
}

// PurgeHistory removes detection history and events older than the requested
// retention window. It backs the admin cleanup endpoint.
func (h *EventsHandler) PurgeHistory(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := h.repo.DeleteHistoryOlderThan(c.Request.Context(), cutoff)
	if err != nil {
		h.logger.WithError(err).Error("Failed to purge detection history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge history"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"removed": removed,
		"days":    days,
	}).Info("Purged detection history")

	c.JSON(http.StatusOK, gin.H{"removed": removed, "days": days})
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
