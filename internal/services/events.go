package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/models"
)

const ProjectUpdatesChannel = "project_updates"

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// EventPublisher fans stage events out over Redis pub/sub so every API
// instance can forward them to its WebSocket clients.
type EventPublisher struct {
	redis redisPublisher
	log   logrus.FieldLogger
}

func NewEventPublisher(client redisPublisher, log logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{redis: client, log: log}
}

// PublishStage sends a stage update. Failures are logged and dropped.
func (p *EventPublisher) PublishStage(ctx context.Context, event models.StageEvent) {
	data, err := json.Marshal(models.WSMessage{Type: models.StageUpdateMessage, Payload: event})
	if err != nil {
		p.log.WithError(err).Warn("Failed to encode stage event")
		return
	}

	if err := p.redis.Publish(ctx, ProjectUpdatesChannel, string(data)).Err(); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"project_id": event.ProjectID,
			"status":     event.Status,
		}).Warn("Failed to publish stage event")
	}
}
