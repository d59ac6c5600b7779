// Package cache holds the Redis-backed read caches in front of Postgres.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/opspulse/opspulse-go/internal/models"
)

const eventsKeyPrefix = "opspulse:events:"

// EventsCache keeps the most recent ranked events per resource so the
// events endpoint does not hit Postgres for every poll.
type EventsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewEventsCache creates an events cache with the given TTL.
func NewEventsCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *EventsCache {
	return &EventsCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Set stores the ranked events for a resource, replacing any previous entry.
func (c *EventsCache) Set(ctx context.Context, resourceID string, events []models.AnomalyEvent) error {
	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	if err := c.client.Set(ctx, eventsKey(resourceID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache events: %w", err)
	}
	return nil
}

// Get returns the cached events for a resource. The second return value is
// false on a miss.
func (c *EventsCache) Get(ctx context.Context, resourceID string) ([]models.AnomalyEvent, bool) {
	payload, err := c.client.Get(ctx, eventsKey(resourceID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Events cache read failed")
		}
		return nil, false
	}

	var events []models.AnomalyEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		c.logger.WithError(err).Warn("Dropping undecodable events cache entry")
		if delErr := c.client.Del(ctx, eventsKey(resourceID)).Err(); delErr != nil {
			c.logger.WithError(delErr).Warn("Failed to drop events cache entry")
		}
		return nil, false
	}

	return events, true
}

// Invalidate removes the cached events for a resource.
func (c *EventsCache) Invalidate(ctx context.Context, resourceID string) error {
	return c.client.Del(ctx, eventsKey(resourceID)).Err()
}

func eventsKey(resourceID string) string {
	return eventsKeyPrefix + resourceID
}
