package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opspulse/opspulse-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// DetectionRepository persists detection history and grouped anomaly events.
type DetectionRepository struct {
	pool DatabasePool
}

// NewDetectionRepository creates a new detection repository.
func NewDetectionRepository(pool DatabasePool) *DetectionRepository {
	return &DetectionRepository{pool: pool}
}

// InsertHistory records one detection run for a series.
func (r *DetectionRepository) InsertHistory(ctx context.Context, h *models.DetectionHistory) (int64, error) {
	query := `
		INSERT INTO detection_history (
			resource_id, metric_name, method, sensitivity,
			total_points, anomaly_count, anomaly_percentage, detection_time_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		h.ResourceID, h.MetricName, h.Method, h.Sensitivity,
		h.TotalPoints, h.AnomalyCount, h.AnomalyPercentage, h.DetectionTimeMs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection history: %w", err)
	}

	return id, nil
}

// InsertEvents records the grouped events produced for a series.
func (r *DetectionRepository) InsertEvents(ctx context.Context, events []models.AnomalyEvent) error {
	query := `
		INSERT INTO anomaly_events (
			resource_id, metric_name, start_time, end_time, duration_seconds,
			max_score, anomaly_points, peak_value, priority
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, ev := range events {
		_, err := r.pool.Exec(ctx, query,
			ev.ResourceID, ev.MetricName, ev.StartTime, ev.EndTime, ev.DurationSeconds,
			ev.MaxScore, ev.AnomalyPoints, ev.PeakValue, ev.Priority,
		)
		if err != nil {
			return fmt.Errorf("failed to insert anomaly event: %w", err)
		}
	}

	return nil
}

// ListEvents returns recent events ordered newest first, optionally filtered
// by resource id.
func (r *DetectionRepository) ListEvents(ctx context.Context, resourceID string, limit int) ([]models.AnomalyEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, resource_id, metric_name, start_time, end_time, duration_seconds,
		       max_score, anomaly_points, peak_value, priority, created_at
		FROM anomaly_events
		WHERE ($1 = '' OR resource_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomaly events: %w", err)
	}
	defer rows.Close()

	var events []models.AnomalyEvent
	for rows.Next() {
		var ev models.AnomalyEvent
		if err := rows.Scan(
			&ev.ID, &ev.ResourceID, &ev.MetricName, &ev.StartTime, &ev.EndTime,
			&ev.DurationSeconds, &ev.MaxScore, &ev.AnomalyPoints, &ev.PeakValue,
			&ev.Priority, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read anomaly events: %w", err)
	}

	return events, nil
}

// ListHistory returns recent detection runs ordered newest first, optionally
// filtered by resource id.
func (r *DetectionRepository) ListHistory(ctx context.Context, resourceID string, limit int) ([]models.DetectionHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, resource_id, metric_name, method, sensitivity,
		       total_points, anomaly_count, anomaly_percentage, detection_time_ms, created_at
		FROM detection_history
		WHERE ($1 = '' OR resource_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection history: %w", err)
	}
	defer rows.Close()

	var history []models.DetectionHistory
	for rows.Next() {
		var h models.DetectionHistory
		if err := rows.Scan(
			&h.ID, &h.ResourceID, &h.MetricName, &h.Method, &h.Sensitivity,
			&h.TotalPoints, &h.AnomalyCount, &h.AnomalyPercentage, &h.DetectionTimeMs,
			&h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read detection history: %w", err)
	}

	return history, nil
}

// DeleteHistoryOlderThan removes detection history and events older than the
// cutoff. It returns the number of history rows removed.
func (r *DetectionRepository) DeleteHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if _, err := r.pool.Exec(ctx, `DELETE FROM anomaly_events WHERE created_at < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete old anomaly events: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM detection_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old detection history: %w", err)
	}

	return tag.RowsAffected(), nil
}
