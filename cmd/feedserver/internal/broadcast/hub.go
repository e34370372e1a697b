package broadcast

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/market"
	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/metrics"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/protocol"
)

type ClientInterface interface {
	ID() string
	SendBytes(b []byte) bool
	Ping() bool
	AwaitingPong() bool
	Close()
}

// Sink receives each tick's outcome for out-of-band distribution. The hub
// never blocks on a sink.
type Sink interface {
	Publish(timestamp int64, stocks []models.Stock, deltas []models.StockDelta)
}

type Config struct {
	TickInterval      time.Duration
	HeartbeatInterval time.Duration
	WriteWait         time.Duration
	SendBuffer        int
}

// Hub owns the universe, the live session set, and the timers that drive
// them. One instance per process, passed by reference; there are no package
// globals. The feed loop runs only while at least one session is live.
type Hub struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   *market.Store
	gen     *market.Generator
	clock   market.Clock
	sink    Sink // optional

	tickInterval      time.Duration
	heartbeatInterval time.Duration
	writeWait         time.Duration
	sendBuffer        int

	mu       sync.RWMutex
	sessions map[string]ClientInterface
	running  bool
	stop     chan struct{}

	tickBusy atomic.Bool
}

func NewHub(
	logger *zap.Logger,
	m *metrics.Metrics,
	store *market.Store,
	gen *market.Generator,
	clock market.Clock,
	sink Sink,
	cfg Config,
) *Hub {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 10 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 5 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}

	return &Hub{
		logger:            logger,
		metrics:           m,
		store:             store,
		gen:               gen,
		clock:             clock,
		sink:              sink,
		tickInterval:      cfg.TickInterval,
		heartbeatInterval: cfg.HeartbeatInterval,
		writeWait:         cfg.WriteWait,
		sendBuffer:        cfg.SendBuffer,
		sessions:          make(map[string]ClientInterface),
	}
}

// Register queues a full snapshot for the session and adds it to the
// broadcast set. The snapshot is built and queued under the same lock that
// broadcasts take, so the first frame any session receives is a snapshot.
func (h *Hub) Register(c ClientInterface) {
	h.mu.Lock()
	snap, err := json.Marshal(protocol.NewSnapshot(h.now(), h.store.Snapshot()))
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("Snapshot Marshal Error", zap.Error(err))
		c.Close()
		return
	}
	if !c.SendBytes(snap) {
		h.mu.Unlock()
		h.metrics.SendErrors.Inc()
		h.logger.Warn("Snapshot Send Failed", zap.String("session_id", c.ID()))
		c.Close()
		return
	}
	h.metrics.SnapshotsSent.Inc()
	h.sessions[c.ID()] = c
	h.metrics.ActiveSessions.Inc()
	h.startLocked()
	h.mu.Unlock()

	h.logger.Info("Session Registered", zap.String("session_id", c.ID()))
}

// Unregister removes the session and closes it. Calls for sessions already
// gone are no-ops, so the read pump and the reaper can race safely. The
// feed loop stops when the last session leaves.
func (h *Hub) Unregister(c ClientInterface) {
	h.mu.Lock()
	if _, ok := h.sessions[c.ID()]; !ok {
		h.mu.Unlock()
		c.Close()
		return
	}
	delete(h.sessions, c.ID())
	h.metrics.ActiveSessions.Dec()
	if len(h.sessions) == 0 {
		h.stopLocked()
	}
	h.mu.Unlock()

	c.Close()
	h.logger.Info("Session Unregistered", zap.String("session_id", c.ID()))
}

// Start begins the tick and heartbeat loops. Idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startLocked()
}

// Stop halts the loops without touching live sessions. Idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *Hub) startLocked() {
	if h.running {
		return
	}
	h.running = true
	h.stop = make(chan struct{})
	go h.run(h.stop)
	h.logger.Info("Feed Loop Started")
}

func (h *Hub) stopLocked() {
	if !h.running {
		return
	}
	h.running = false
	close(h.stop)
	h.logger.Info("Feed Loop Stopped")
}

func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Shutdown stops the loops and tears down every session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	stale := make([]ClientInterface, 0, len(h.sessions))
	for _, c := range h.sessions {
		stale = append(stale, c)
	}
	h.sessions = make(map[string]ClientInterface)
	h.metrics.ActiveSessions.Sub(float64(len(stale)))
	h.stopLocked()
	h.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	h.logger.Info("Hub Shutdown Complete", zap.Int("sessions_closed", len(stale)))
}

func (h *Hub) run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.tickInterval)
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()
	defer heartbeat.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.Tick()
		case <-heartbeat.C:
			h.pingSessions()
		}
	}
}

// Tick runs one generation step: walk the universe, broadcast one update
// message, hand the batch to the sink. The run loop calls it on every timer
// fire; tests call it directly.
func (h *Hub) Tick() {
	// Start/stop churn can briefly leave two loops alive; the guard keeps
	// ticks from ever overlapping.
	if !h.tickBusy.CompareAndSwap(false, true) {
		h.metrics.TickSkips.Inc()
		return
	}
	defer h.tickBusy.Store(false)

	h.metrics.Ticks.Inc()
	deltas := h.gen.Tick()
	if len(deltas) == 0 {
		return
	}
	h.metrics.DeltasGenerated.Add(float64(len(deltas)))

	ts := h.now()
	payload, err := json.Marshal(protocol.NewUpdate(ts, deltas))
	if err != nil {
		h.logger.Error("Update Marshal Error", zap.Error(err))
		return
	}
	h.broadcast(payload)

	if h.sink != nil {
		symbols := make([]string, len(deltas))
		for i, d := range deltas {
			symbols[i] = d.Symbol
		}
		h.sink.Publish(ts, h.store.GetBatch(symbols), deltas)
	}
}

// broadcast fans one payload out to every live session. A full send buffer
// costs that session this frame and nothing else; other sessions and the
// tick are never affected.
func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.sessions {
		if c.SendBytes(payload) {
			h.metrics.UpdatesSent.Inc()
		} else {
			h.metrics.SendErrors.Inc()
			h.logger.Warn("Send Buffer Full", zap.String("session_id", c.ID()))
		}
	}
}

// pingSessions pings every live session and reaps the ones that never
// answered the previous ping.
func (h *Hub) pingSessions() {
	h.mu.RLock()
	var stale []ClientInterface
	for _, c := range h.sessions {
		if c.AwaitingPong() {
			stale = append(stale, c)
			continue
		}
		c.Ping()
	}
	h.mu.RUnlock()

	// Unregister retakes the write lock, so teardown happens outside the
	// read section.
	for _, c := range stale {
		h.logger.Warn("Reaping Stale Session", zap.String("session_id", c.ID()))
		h.metrics.SessionsReaped.Inc()
		h.Unregister(c)
	}
}

func (h *Hub) now() int64 { return h.clock.Now().UnixMilli() }
