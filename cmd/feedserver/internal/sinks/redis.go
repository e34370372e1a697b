package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RedisMirror keeps the latest state of every touched stock in Redis and
// publishes each delta on a per-symbol channel, so side consumers (alert
// engines, historical recorders) can follow the feed without a socket.
type RedisMirror struct {
	rdb RedisClient
	ttl time.Duration
}

func NewRedisMirror(rdb RedisClient, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &RedisMirror{rdb: rdb, ttl: ttl}
}

func (m *RedisMirror) Name() string { return "redis_mirror" }

// Publish writes the batch in a single pipeline. Key and channel layout:
// full state at stock:<symbol>, delta stream on prices.<symbol>.
func (m *RedisMirror) Publish(ctx context.Context, b Batch) error {
	pipe := m.rdb.Pipeline()

	for i := range b.Stocks {
		payload, err := json.Marshal(&b.Stocks[i])
		if err != nil {
			return fmt.Errorf("marshal stock %s: %w", b.Stocks[i].Symbol, err)
		}
		key := fmt.Sprintf("stock:%s", b.Stocks[i].Symbol)
		pipe.Set(ctx, key, payload, m.ttl)
	}

	for i := range b.Deltas {
		payload, err := json.Marshal(&b.Deltas[i])
		if err != nil {
			return fmt.Errorf("marshal delta %s: %w", b.Deltas[i].Symbol, err)
		}
		channelName := fmt.Sprintf("prices.%s", b.Deltas[i].Symbol)
		pipe.Publish(ctx, channelName, payload)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (m *RedisMirror) Close() error { return m.rdb.Close() }
