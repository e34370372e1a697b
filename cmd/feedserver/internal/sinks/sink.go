package sinks

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/broadcast"
	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/metrics"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

// Batch is one tick's outcome: the deltas broadcast to sessions plus the
// post-tick state of every touched stock.
type Batch struct {
	Timestamp int64
	Stocks    []models.Stock
	Deltas    []models.StockDelta
}

// Sink distributes tick batches out-of-band (cache mirror, stream egress).
type Sink interface {
	Name() string
	Publish(ctx context.Context, b Batch) error
	Close() error
}

// Compile-time check to ensure Fanout plugs into the hub
var _ broadcast.Sink = (*Fanout)(nil)

// Fanout feeds one worker goroutine per sink. Enqueueing never blocks: a
// sink that cannot keep up loses batches, not the tick.
type Fanout struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	sinks   []Sink
	chans   []chan Batch
	wg      sync.WaitGroup
}

func NewFanout(logger *zap.Logger, m *metrics.Metrics, sinks ...Sink) *Fanout {
	f := &Fanout{
		logger:  logger,
		metrics: m,
		sinks:   sinks,
		chans:   make([]chan Batch, len(sinks)),
	}
	for i, s := range sinks {
		f.chans[i] = make(chan Batch, 100)
		f.wg.Add(1)
		go f.worker(s, f.chans[i])
	}
	return f
}

// Publish enqueues the batch for every sink.
func (f *Fanout) Publish(timestamp int64, stocks []models.Stock, deltas []models.StockDelta) {
	b := Batch{Timestamp: timestamp, Stocks: stocks, Deltas: deltas}
	for i, ch := range f.chans {
		select {
		case ch <- b:
		default:
			f.metrics.SinkDrops.WithLabelValues(f.sinks[i].Name()).Inc()
			f.logger.Warn("Dropping Slow Sink Batch", zap.String("sink", f.sinks[i].Name()))
		}
	}
}

func (f *Fanout) worker(s Sink, batches <-chan Batch) {
	defer f.wg.Done()
	ctx := context.Background()

	for b := range batches {
		if err := s.Publish(ctx, b); err != nil {
			f.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			f.logger.Error("Sink Publish Error", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}

// Close drains queued batches, then closes every sink.
func (f *Fanout) Close() error {
	for _, ch := range f.chans {
		close(ch)
	}
	f.wg.Wait()

	var firstErr error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
