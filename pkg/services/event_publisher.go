package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/scoring"
)

// scoreEventChannel is the pub/sub channel background score events are
// published on.
const scoreEventChannel = "bidfit.scores"

// RedisEventPublisher broadcasts score events over Redis pub/sub so
// sibling services (notifications, websockets) can react to background
// scoring without polling.
type RedisEventPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisEventPublisher creates a publisher over the given client. A nil
// client yields a nil publisher, which the dispatcher treats as "no
// events".
func NewRedisEventPublisher(client *redis.Client, logger *zap.Logger) *RedisEventPublisher {
	if client == nil {
		return nil
	}
	return &RedisEventPublisher{
		client: client,
		logger: logger.Named("event-publisher"),
	}
}

var _ scoring.EventPublisher = (*RedisEventPublisher)(nil)

func (p *RedisEventPublisher) Publish(ctx context.Context, event scoring.ScoreEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode score event: %w", err)
	}
	if err := p.client.Publish(ctx, scoreEventChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish score event: %w", err)
	}
	return nil
}
