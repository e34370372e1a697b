package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/sinks"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time        { return m.CurrentTime }
func (m *MockClock) Sleep(d time.Duration) { m.CurrentTime = m.CurrentTime.Add(d) }

// MockRand returns fixed values regardless of arguments. ValInt of 0 makes
// sampling deterministic: the generator picks universe entries in order.
type MockRand struct {
	ValInt   int
	ValFloat float64
	ValNorm  float64
}

func (m *MockRand) Intn(n int) int       { return m.ValInt }
func (m *MockRand) Float64() float64     { return m.ValFloat }
func (m *MockRand) NormFloat64() float64 { return m.ValNorm }

// MockSession stands in for a live connection in hub tests. AutoPong
// simulates a client that answers every ping instantly; FailSend simulates
// a full send buffer.
type MockSession struct {
	Id       string
	AutoPong bool
	FailSend bool

	Mu       sync.Mutex
	Messages [][]byte
	Pings    int
	Awaiting bool
	Closed   bool
}

func (m *MockSession) ID() string { return m.Id }

func (m *MockSession) SetFailSend(v bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.FailSend = v
}

func (m *MockSession) SendBytes(b []byte) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailSend {
		return false
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	m.Messages = append(m.Messages, cp)
	return true
}

func (m *MockSession) Ping() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Pings++
	if !m.AutoPong {
		m.Awaiting = true
	}
	return true
}

func (m *MockSession) AwaitingPong() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Awaiting
}

func (m *MockSession) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockSession) MessageCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Messages)
}

func (m *MockSession) IsClosed() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Closed
}

// SpySink records every batch the hub publishes.
type SpySink struct {
	Mu      sync.Mutex
	Batches [][]models.StockDelta
	Stocks  [][]models.Stock
}

func (s *SpySink) Publish(timestamp int64, stocks []models.Stock, deltas []models.StockDelta) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Batches = append(s.Batches, deltas)
	s.Stocks = append(s.Stocks, stocks)
}

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }

type MockPipeline struct {
	redis.Pipeliner // Embed interface to satisfy missing methods like ACLCat, etc.

	ExecCount    int
	RecordedCmds []string
	Mu           sync.Mutex
}

func (m *MockPipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "SET "+key)
	return redis.NewStatusCmd(ctx)
}

func (m *MockPipeline) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "PUBLISH "+channel)
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.ExecCount++
	return nil, nil
}

type MockRedisClient struct {
	PipelineSpy *MockPipeline
	CloseCount  int
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{PipelineSpy: &MockPipeline{}}
}

func (m *MockRedisClient) Pipeline() redis.Pipeliner {
	return m.PipelineSpy
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx)
}

func (m *MockRedisClient) Close() error {
	m.CloseCount++
	return nil
}

type MockKafkaConn struct {
	CreatedTopics []string
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	for _, t := range topics {
		m.CreatedTopics = append(m.CreatedTopics, t.Topic)
	}
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	// Simulate "Ready" state immediately
	return []kafka.Partition{{ID: 0}}, nil
}

type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (sinks.KafkaConn, error) {
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{}
	}
	return m.ConnSpy, nil
}
