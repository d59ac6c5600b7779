package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/opspulse/opspulse-go/internal/cache"
	"github.com/opspulse/opspulse-go/internal/database"
	"github.com/opspulse/opspulse-go/internal/detection"
	"github.com/opspulse/opspulse-go/internal/models"
	"github.com/opspulse/opspulse-go/internal/services"
)

// DetectionHandler runs anomaly detection over submitted series and fans the
// results out to persistence, the events cache, and alerting.
type DetectionHandler struct {
	engine      *detection.Engine
	repo        *database.DetectionRepository
	eventsCache *cache.EventsCache
	alerts      *services.AlertService
	logger      *logrus.Logger
}

// NewDetectionHandler creates a detection handler. The repository, cache, and
// alert service may each be nil; detection itself never depends on them.
func NewDetectionHandler(
	engine *detection.Engine,
	repo *database.DetectionRepository,
	eventsCache *cache.EventsCache,
	alerts *services.AlertService,
	logger *logrus.Logger,
) *DetectionHandler {
	return &DetectionHandler{
		engine:      engine,
		repo:        repo,
		eventsCache: eventsCache,
		alerts:      alerts,
		logger:      logger,
	}
}

type seriesOutcome struct {
	result models.SeriesResult
	events []models.GroupedEvent
}

// HandleDetect processes a batch of series. Series are independent, so they
// run concurrently; the response preserves the submitted order.
func (h *DetectionHandler) HandleDetect(c *gin.Context) {
	var req models.DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcomes := make([]seriesOutcome, len(req.Series))
	var wg sync.WaitGroup
	for i := range req.Series {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			outcomes[idx] = h.processSeries(req.Series[idx], req.Method, req.Sensitivity)
		}(i)
	}
	wg.Wait()

	response := models.DetectionResponse{
		Results:     make([]models.SeriesResult, 0, len(outcomes)),
		TotalSeries: len(outcomes),
	}
	allEvents := make([]models.GroupedEvent, 0)
	for _, out := range outcomes {
		response.Results = append(response.Results, out.result)
		response.TotalAnomalies += out.result.AnomalyCount
		allEvents = append(allEvents, out.events...)
	}
	response.GroupedEvents = allEvents

	h.persist(c.Request.Context(), response.Results, allEvents, req.Sensitivity)

	if h.alerts != nil {
		h.alerts.NotifyEvents(c.Request.Context(), allEvents)
	}

	c.JSON(http.StatusOK, response)
}

// processSeries runs detection and grouping for one series.
func (h *DetectionHandler) processSeries(series models.TimeSeriesInput, method, sensitivity string) seriesOutcome {
	timestamps := make([]time.Time, len(series.Data))
	values := make([]float64, len(series.Data))
	for i, p := range series.Data {
		timestamps[i] = p.Timestamp
		values[i] = p.Value
	}

	outcome := h.engine.Detect(timestamps, values, method, sensitivity)

	points := make([]models.AnomalyPoint, len(outcome.Points))
	flags := make([]bool, len(outcome.Points))
	scores := make([]float64, len(outcome.Points))
	for i, p := range outcome.Points {
		points[i] = models.AnomalyPoint{
			Timestamp: p.Timestamp,
			Value:     p.Value,
			Score:     p.Score,
			IsAnomaly: p.IsAnomaly,
			Reason:    p.Reason,
		}
		flags[i] = p.IsAnomaly
		scores[i] = p.Score
	}

	result := models.SeriesResult{
		ResourceID:      series.ResourceID,
		MetricName:      series.MetricName,
		MethodUsed:      outcome.Method,
		Points:          points,
		TotalPoints:     len(points),
		AnomalyCount:    outcome.AnomalyCount,
		DetectionTimeMs: outcome.DetectionTimeMs,
	}
	if result.TotalPoints > 0 {
		result.AnomalyPercentage = float64(result.AnomalyCount) / float64(result.TotalPoints) * 100
	}

	grouped := h.engine.GroupEvents(timestamps, flags, scores, values, series.MetricName)
	events := make([]models.GroupedEvent, len(grouped))
	for i, ev := range grouped {
		events[i] = models.GroupedEvent{
			ResourceID:      series.ResourceID,
			Metric:          ev.Metric,
			StartTime:       ev.StartTime,
			EndTime:         ev.EndTime,
			DurationSeconds: ev.DurationSeconds,
			MaxScore:        ev.MaxScore,
			AnomalyPoints:   ev.AnomalyPoints,
			PeakValue:       ev.PeakValue,
			Priority:        ev.Priority,
		}
	}

	return seriesOutcome{result: result, events: events}
}

// persist records the run and its events. Storage failures are logged and
// never surface to the caller.
func (h *DetectionHandler) persist(ctx context.Context, results []models.SeriesResult, events []models.GroupedEvent, sensitivity string) {
	if h.repo == nil {
		return
	}
	if sensitivity == "" {
		sensitivity = "default"
	}

	for _, res := range results {
		history := &models.DetectionHistory{
			ResourceID:        res.ResourceID,
			MetricName:        res.MetricName,
			Method:            res.MethodUsed,
			Sensitivity:       sensitivity,
			TotalPoints:       res.TotalPoints,
			AnomalyCount:      res.AnomalyCount,
			AnomalyPercentage: res.AnomalyPercentage,
			DetectionTimeMs:   res.DetectionTimeMs,
		}
		if _, err := h.repo.InsertHistory(ctx, history); err != nil {
			h.logger.WithError(err).WithField("resource_id", res.ResourceID).Warn("Failed to persist detection history")
		}
	}

	if len(events) == 0 {
		return
	}

	records := make([]models.AnomalyEvent, len(events))
	byResource := make(map[string][]models.AnomalyEvent)
	for i, ev := range events {
		records[i] = models.AnomalyEvent{
			ResourceID:      ev.ResourceID,
			MetricName:      ev.Metric,
			StartTime:       ev.StartTime,
			EndTime:         ev.EndTime,
			DurationSeconds: ev.DurationSeconds,
			MaxScore:        ev.MaxScore,
			AnomalyPoints:   ev.AnomalyPoints,
			PeakValue:       ev.PeakValue,
			Priority:        ev.Priority,
		}
		byResource[ev.ResourceID] = append(byResource[ev.ResourceID], records[i])
	}

	if err := h.repo.InsertEvents(ctx, records); err != nil {
		h.logger.WithError(err).Warn("Failed to persist anomaly events")
	}

	if h.eventsCache != nil {
		for resourceID, resourceEvents := range byResource {
			if err := h.eventsCache.Set(ctx, resourceID, resourceEvents); err != nil {
				h.logger.WithError(err).WithField("resource_id", resourceID).Warn("Failed to cache anomaly events")
			}
		}
	}
}
