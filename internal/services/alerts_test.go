package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/opspulse/opspulse-go/internal/config"
	"github.com/opspulse/opspulse-go/internal/models"
)

func newTestAlertLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewAlertServiceWithoutToken(t *testing.T) {
	svc := NewAlertService(config.AlertsConfig{
		TelegramChatID:    12345,
		PriorityThreshold: 0.8,
	}, newTestAlertLogger())

	assert.False(t, svc.Enabled())
}

func TestNewAlertServiceWithoutChatID(t *testing.T) {
	svc := NewAlertService(config.AlertsConfig{
		PriorityThreshold: 0.8,
	}, newTestAlertLogger())

	assert.False(t, svc.Enabled())
}

func TestNotifyEventsDisabledIsNoOp(t *testing.T) {
	svc := NewAlertService(config.AlertsConfig{PriorityThreshold: 0.8}, newTestAlertLogger())

	events := []models.GroupedEvent{
		{ResourceID: "pod-web-001", Metric: "cpu", Priority: 0.95},
	}

	assert.NotPanics(t, func() {
		svc.NotifyEvents(context.Background(), events)
	})
}

func TestFormatEventAlert(t *testing.T) {
	start := time.Date(2025, 12, 28, 22, 0, 0, 0, time.UTC)
	ev := models.GroupedEvent{
		ResourceID:      "pod-web-001",
		Metric:          "cpu",
		StartTime:       start,
		EndTime:         start.Add(3 * time.Minute),
		DurationSeconds: 180,
		MaxScore:        0.91,
		AnomalyPoints:   4,
		PeakValue:       197.2,
		Priority:        0.635,
	}

	msg := formatEventAlert(ev)

	assert.Contains(t, msg, "Anomaly Event")
	assert.Contains(t, msg, "pod-web-001")
	assert.Contains(t, msg, "cpu")
	assert.Contains(t, msg, "0.635")
	assert.Contains(t, msg, "197.20")
	assert.Contains(t, msg, "2025-12-28T22:00:00Z")
	assert.Contains(t, msg, "180s")
}
