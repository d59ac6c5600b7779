package models

import (
	"time"
)

// MetricPoint is a single timestamped sample of an infrastructure metric.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
	Value     float64   `json:"value"`
}

// TimeSeriesInput is one series submitted for detection.
type TimeSeriesInput struct {
	ResourceID string        `json:"resource_id" binding:"required"`
	MetricName string        `json:"metric_name" binding:"required,oneof=cpu memory requests error_rate latency"`
	Data       []MetricPoint `json:"data" binding:"required,min=10,dive"`
}

// DetectionRequest carries 1..10 series plus the detection parameters.
type DetectionRequest struct {
	Series      []TimeSeriesInput `json:"series" binding:"required,min=1,max=10,dive"`
	Method      string            `json:"method"`
	Sensitivity string            `json:"sensitivity"`
}

// AnomalyPoint is the per-point detection verdict returned to the caller.
// Reason is advisory text and is never consumed downstream.
type AnomalyPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Score     float64   `json:"score"`
	IsAnomaly bool      `json:"is_anomaly"`
	Reason    string    `json:"reason,omitempty"`
}

// SeriesResult is the detection outcome for a single series.
type SeriesResult struct {
	ResourceID        string         `json:"resource_id"`
	MetricName        string         `json:"metric_name"`
	MethodUsed        string         `json:"method_used"`
	Points            []AnomalyPoint `json:"anomalies"`
	TotalPoints       int            `json:"total_points"`
	AnomalyCount      int            `json:"anomaly_count"`
	AnomalyPercentage float64        `json:"anomaly_percentage"`
	DetectionTimeMs   float64        `json:"detection_time_ms"`
}

// GroupedEvent is a run of temporally close anomalous points collapsed into
// one prioritized alert.
type GroupedEvent struct {
	ResourceID      string    `json:"resource_id"`
	Metric          string    `json:"metric"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	MaxScore        float64   `json:"max_score"`
	AnomalyPoints   int       `json:"anomaly_points"`
	PeakValue       float64   `json:"peak_value"`
	Priority        float64   `json:"priority"`
}

// DetectionResponse is the combined response for a detection request.
type DetectionResponse struct {
	Results        []SeriesResult `json:"results"`
	GroupedEvents  []GroupedEvent `json:"grouped_events,omitempty"`
	TotalSeries    int            `json:"total_series"`
	TotalAnomalies int            `json:"total_anomalies"`
}

// MethodInfo describes one detection method for the catalogue endpoint.
type MethodInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	BestFor     []string `json:"best_for"`
	Available   bool     `json:"available"`
}

// DetectionHistory is one persisted detection run for a series.
type DetectionHistory struct {
	ID                int64     `json:"id" db:"id"`
	ResourceID        string    `json:"resource_id" db:"resource_id"`
	MetricName        string    `json:"metric_name" db:"metric_name"`
	Method            string    `json:"method" db:"method"`
	Sensitivity       string    `json:"sensitivity" db:"sensitivity"`
	TotalPoints       int       `json:"total_points" db:"total_points"`
	AnomalyCount      int       `json:"anomaly_count" db:"anomaly_count"`
	AnomalyPercentage float64   `json:"anomaly_percentage" db:"anomaly_percentage"`
	DetectionTimeMs   float64   `json:"detection_time_ms" db:"detection_time_ms"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// AnomalyEvent is one persisted grouped event.
type AnomalyEvent struct {
	ID              int64     `json:"id" db:"id"`
	ResourceID      string    `json:"resource_id" db:"resource_id"`
	MetricName      string    `json:"metric_name" db:"metric_name"`
	StartTime       time.Time `json:"start_time" db:"start_time"`
	EndTime         time.Time `json:"end_time" db:"end_time"`
	DurationSeconds float64   `json:"duration_seconds" db:"duration_seconds"`
	MaxScore        float64   `json:"max_score" db:"max_score"`
	AnomalyPoints   int       `json:"anomaly_points" db:"anomaly_points"`
	PeakValue       float64   `json:"peak_value" db:"peak_value"`
	Priority        float64   `json:"priority" db:"priority"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
