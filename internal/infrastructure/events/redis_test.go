package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshledger/internal/core/id"
	"freshledger/internal/domain"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/pkg/logger"
)

type published struct {
	channel string
	body    []byte
}

type fakeRedis struct {
	out []published
	err error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.out = append(f.out, published{channel: channel, body: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func testCtx() context.Context {
	return logger.WithLogger(context.Background(), logger.Nop())
}

func TestRedisHandler_Handle(t *testing.T) {
	fake := &fakeRedis{}
	h := &RedisHandler{client: fake, prefix: DefaultChannelPrefix}
	msg := &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: "payment",
		AggregateID:   id.New(),
		EventType:     domain.EventPaymentRecorded,
		Payload:       []byte(`{"amount":"100"}`),
		CreatedAt:     time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, h.Handle(testCtx(), msg))
	require.Len(t, fake.out, 1)
	assert.Equal(t, "freshledger.events.payment", fake.out[0].channel)

	var env Envelope
	require.NoError(t, json.Unmarshal(fake.out[0].body, &env))
	assert.Equal(t, msg.AggregateID, env.AggregateID)
	assert.Equal(t, domain.EventPaymentRecorded, env.EventType)
	assert.JSONEq(t, `{"amount":"100"}`, string(env.Payload))
}

func TestRedisHandler_EmptyPayload(t *testing.T) {
	fake := &fakeRedis{}
	h := &RedisHandler{client: fake, prefix: "x"}

	require.NoError(t, h.Handle(testCtx(), &postgres.OutboxMessage{AggregateType: "order", EventType: domain.EventOrderConfirmed}))
	assert.Equal(t, "x.order", fake.out[0].channel)
	assert.Contains(t, string(fake.out[0].body), `"payload":null`)
}

func TestRedisHandler_PublishError(t *testing.T) {
	h := &RedisHandler{client: &fakeRedis{err: errors.New("connection reset")}, prefix: DefaultChannelPrefix}

	err := h.Handle(testCtx(), &postgres.OutboxMessage{AggregateType: "order", EventType: domain.EventOrderConfirmed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.EventOrderConfirmed)
}

func TestLogHandler(t *testing.T) {
	assert.NoError(t, LogHandler{}.Handle(testCtx(), &postgres.OutboxMessage{EventType: domain.EventPurchaseRecorded}))
}
