// Package events fans committed outbox messages out to subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"freshledger/internal/core/id"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/pkg/logger"
)

// DefaultChannelPrefix namespaces published channels.
const DefaultChannelPrefix = "freshledger.events"

// Envelope is the message body delivered to subscribers.
type Envelope struct {
	ID            id.ID           `json:"id"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   id.ID           `json:"aggregateId"`
	EventType     string          `json:"eventType"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisHandler publishes outbox messages on Redis pub/sub channels named
// <prefix>.<aggregate_type>.
type RedisHandler struct {
	client redisPublisher
	prefix string
}

var _ postgres.OutboxHandler = (*RedisHandler)(nil)

// NewRedisHandler creates a handler over rdb.
func NewRedisHandler(rdb redis.UniversalClient, prefix string) *RedisHandler {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisHandler{client: rdb, prefix: prefix}
}

// Channel returns the channel a message is published to.
func (h *RedisHandler) Channel(msg *postgres.OutboxMessage) string {
	return h.prefix + "." + msg.AggregateType
}

// Handle implements postgres.OutboxHandler.
func (h *RedisHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	body, err := json.Marshal(envelopeOf(msg))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	receivers, err := h.client.Publish(ctx, h.Channel(msg), body).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}
	logger.Debug(ctx, "outbox event published",
		"event_type", msg.EventType,
		"aggregate_id", msg.AggregateID,
		"receivers", receivers,
	)
	return nil
}

// LogHandler only logs messages. Used when no broker is configured.
type LogHandler struct{}

var _ postgres.OutboxHandler = LogHandler{}

func (LogHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	logger.Info(ctx, "outbox event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
	)
	return nil
}

func envelopeOf(msg *postgres.OutboxMessage) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		OccurredAt:    msg.CreatedAt,
		Payload:       payload,
	}
}
