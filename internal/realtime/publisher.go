// Package realtime publishes live events for connected sessions over Redis
// pub/sub. The connection lifecycle of the delivery channel itself is
// external to this server; publication is strictly fire-and-forget.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event is a live payload pushed to one recipient's channel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Publisher pushes events onto per-user Redis channels. A nil client makes
// every publish a no-op (realtime disabled).
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPublisher creates a publisher. client may be nil.
func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// NewRedisClient creates a Redis client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// ChannelForUser is the per-user live channel name.
func ChannelForUser(userID string) string {
	return "atelier:user:" + userID
}

// Publish pushes an event to a user's channel. Failures are logged and
// swallowed: a dropped live event must never fail the primary mutation.
func (p *Publisher) Publish(ctx context.Context, userID string, ev Event) {
	if p.client == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("marshal realtime event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, ChannelForUser(userID), payload).Err(); err != nil {
		p.logger.Warn("publish realtime event",
			zap.String("type", ev.Type),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// Ping verifies the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	if p.client == nil {
		return nil
	}
	return p.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
