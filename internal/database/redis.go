package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients keeps publishing and subscribing on separate connections so a
// blocked subscriber never delays a stage event.
type RedisClients struct {
	Events *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	eventsClient := redis.NewClient(opt)
	if err := eventsClient.Ping(ctx).Err(); err != nil {
		eventsClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (events): %w", err)
	}

	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		eventsClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Events: eventsClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Events.Close()
	r.PubSub.Close()
}
