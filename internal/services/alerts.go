// Package services holds the request-scoped orchestration around the
// detection engine: alert delivery and series processing helpers.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/opspulse/opspulse-go/internal/config"
	"github.com/opspulse/opspulse-go/internal/models"
)

// AlertService pushes high-priority events to Telegram. A missing bot token
// disables delivery without disabling detection.
type AlertService struct {
	bot       *bot.Bot
	chatID    int64
	threshold float64
	logger    *logrus.Logger
}

// NewAlertService creates an alert service. The Telegram bot is only
// initialized when a token is configured.
func NewAlertService(cfg config.AlertsConfig, logger *logrus.Logger) *AlertService {
	var telegramBot *bot.Bot
	if cfg.TelegramBotToken != "" {
		var err error
		telegramBot, err = bot.New(cfg.TelegramBotToken)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Telegram bot, alerts disabled")
			telegramBot = nil
		}
	}

	return &AlertService{
		bot:       telegramBot,
		chatID:    cfg.TelegramChatID,
		threshold: cfg.PriorityThreshold,
		logger:    logger,
	}
}

// Enabled reports whether alerts can actually be delivered.
func (s *AlertService) Enabled() bool {
	return s.bot != nil && s.chatID != 0
}

// NotifyEvents sends one message per event at or above the priority
// threshold. Delivery failures are logged and never propagated; alerting
// must not fail a detection request.
func (s *AlertService) NotifyEvents(ctx context.Context, events []models.GroupedEvent) {
	if !s.Enabled() {
		return
	}

	for _, ev := range events {
		if ev.Priority < s.threshold {
			continue
		}

		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    s.chatID,
			Text:      formatEventAlert(ev),
			ParseMode: tgmodels.ParseModeMarkdown,
		})
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"resource_id": ev.ResourceID,
				"metric":      ev.Metric,
				"priority":    ev.Priority,
			}).Warn("Failed to send event alert")
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"resource_id": ev.ResourceID,
			"metric":      ev.Metric,
			"priority":    ev.Priority,
		}).Info("Sent event alert")
	}
}

func formatEventAlert(ev models.GroupedEvent) string {
	var b strings.Builder
	b.WriteString("🚨 *Anomaly Event*\n\n")
	b.WriteString(fmt.Sprintf("*Resource:* %s\n", ev.ResourceID))
	b.WriteString(fmt.Sprintf("*Metric:* %s\n", ev.Metric))
	b.WriteString(fmt.Sprintf("*Priority:* %.3f\n", ev.Priority))
	b.WriteString(fmt.Sprintf("*Max score:* %.2f\n", ev.MaxScore))
	b.WriteString(fmt.Sprintf("*Points:* %d\n", ev.AnomalyPoints))
	b.WriteString(fmt.Sprintf("*Peak value:* %.2f\n", ev.PeakValue))
	b.WriteString(fmt.Sprintf("*Window:* %s → %s (%.0fs)\n",
		ev.StartTime.Format(time.RFC3339), ev.EndTime.Format(time.RFC3339), ev.DurationSeconds))
	return b.String()
}
