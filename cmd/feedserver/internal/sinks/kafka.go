package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaEgress streams every delta to a topic, keyed by symbol so one
// symbol's updates land on one partition in order.
type KafkaEgress struct {
	writer KafkaWriter
}

func NewKafkaEgress(writer KafkaWriter) *KafkaEgress {
	return &KafkaEgress{writer: writer}
}

func (e *KafkaEgress) Name() string { return "kafka_egress" }

func (e *KafkaEgress) Publish(ctx context.Context, b Batch) error {
	if len(b.Deltas) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(b.Deltas))
	for i := range b.Deltas {
		payload, err := json.Marshal(&b.Deltas[i])
		if err != nil {
			return fmt.Errorf("marshal delta %s: %w", b.Deltas[i].Symbol, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(b.Deltas[i].Symbol),
			Value: payload,
			Time:  time.UnixMilli(b.Timestamp),
		})
	}

	return e.writer.WriteMessages(ctx, msgs...)
}

func (e *KafkaEgress) Close() error { return e.writer.Close() }
