package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisPublisher fans each event out to "<prefix>:events:<type>" and
// "<prefix>:events:all".
type RedisPublisher struct {
	redis  *redis.Client
	prefix string
}

func NewRedisPublisher(redisClient *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (p *RedisPublisher) Channel(eventType string) string {
	return fmt.Sprintf("%s:events:%s", p.prefix, eventType)
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.redis.Publish(ctx, p.Channel(event.Type), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := p.redis.Publish(ctx, p.Channel("all"), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (p *RedisPublisher) Close() error {
	return nil
}
