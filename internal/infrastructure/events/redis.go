package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rustamrustamv/UEMS/internal/domain/event"
)

// RedisPublisher fans reconciliation outcomes out over a redis pub/sub
// channel. Metrics and audit-log consumers subscribe externally; the engine
// itself holds no counters.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher connects to redis and verifies the connection
func NewRedisPublisher(addr, password string, db int, channel string, logger *zap.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}, nil
}

// Publish serializes the outcome and publishes it on the configured channel
func (p *RedisPublisher) Publish(ctx context.Context, outcome event.Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to serialize outcome event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish outcome event: %w", err)
	}

	p.logger.Debug("Outcome event published",
		zap.String("channel", p.channel),
		zap.String("payment_id", outcome.PaymentID.String()),
		zap.String("kind", string(outcome.Kind)))

	return nil
}

// Close closes the redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
