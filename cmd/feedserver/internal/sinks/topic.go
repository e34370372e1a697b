package sinks

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicEnsurer struct {
	logger *zap.Logger
	dialer KafkaDialer
	clock  Clock
}

func NewTopicEnsurer(logger *zap.Logger, dialer KafkaDialer, clock Clock) *TopicEnsurer {
	return &TopicEnsurer{
		logger: logger,
		dialer: dialer,
		clock:  clock,
	}
}

// Ensure creates the egress topic if it does not exist yet. Failures are
// logged, not returned: the writer will surface them anyway if the topic
// truly never appears.
func (te *TopicEnsurer) Ensure(brokers []string, topicName string) {
	ctx := context.Background()
	var conn KafkaConn
	var err error

	for _, addr := range brokers {
		conn, err = te.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
	}
	if err != nil {
		te.logger.Warn("Failed to dial brokers", zap.Error(err))
		return
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		te.logger.Warn("Failed to get controller", zap.Error(err))
		return
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := te.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		te.logger.Warn("Failed to dial controller", zap.Error(err))
		return
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     4,
		ReplicationFactor: 1,
	})

	if err != nil {
		te.logger.Info("Topic creation finished (might already exist)", zap.Error(err))
	} else {
		te.logger.Info("Topic creation request sent", zap.String("topic", topicName))
	}

	te.waitForTopic(conn, topicName)
}

func (te *TopicEnsurer) waitForTopic(conn KafkaConn, topicName string) {
	te.logger.Info("Waiting for topic initialization...", zap.String("topic", topicName))
	for i := 0; i < 5; i++ {
		te.clock.Sleep(200 * time.Millisecond) // Fast retry for tests
		partitions, err := conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			te.logger.Info("Topic is ready!", zap.Int("partitions", len(partitions)))
			return
		}
	}
	te.logger.Warn("Timed out waiting for topic")
}
