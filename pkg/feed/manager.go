package feed

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/protocol"
)

// ErrNotConnected is returned by Ping when no socket is open.
var ErrNotConnected = errors.New("feed: not connected")

// Options tune the manager. Zero values get the documented defaults.
type Options struct {
	URL           string
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
}

// Manager owns the feed socket lifecycle: dialing, routing frames into the
// store and scheduler, and reconnecting with exponential backoff after any
// unexpected close. There is no give-up threshold; once the delay reaches
// the cap it stays there.
type Manager struct {
	logger *zap.Logger
	dialer Dialer
	clock  Clock
	store  *Store
	sched  *Scheduler
	opts   Options

	mu        sync.Mutex
	state     ConnState
	conn      Conn
	attempts  int
	suppress  bool
	reconnect Timer
}

func NewManager(logger *zap.Logger, dialer Dialer, clock Clock, store *Store, sched *Scheduler, opts Options) *Manager {
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = 3 * time.Second
	}
	if opts.ReconnectCap <= 0 {
		opts.ReconnectCap = 30 * time.Second
	}
	return &Manager{
		logger: logger,
		dialer: dialer,
		clock:  clock,
		store:  store,
		sched:  sched,
		opts:   opts,
		state:  StateDisconnected,
	}
}

// backoffDelay is min(base * 2^(attempt-1), limit) for attempt >= 1.
func backoffDelay(base, limit time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// Connect opens the feed socket asynchronously. Calling it while already
// connecting or connected does nothing; calling it after Disconnect re-arms
// automatic retries.
func (m *Manager) Connect() {
	m.mu.Lock()
	next, ok := transition(m.state, eventConnect)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.suppress = false
	m.cancelReconnectLocked()
	m.state = next
	m.mu.Unlock()

	m.logger.Info("Connecting", zap.String("url", m.opts.URL))
	go m.dial()
}

// Disconnect closes the socket, cancels any pending reconnect, and
// suppresses every automatic retry until the next Connect call.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.suppress = true
	m.cancelReconnectLocked()
	c := m.conn
	m.conn = nil
	next, _ := transition(m.state, eventDisconnect)
	m.state = next
	m.mu.Unlock()

	if c != nil {
		c.Close()
	}
	m.logger.Info("Disconnected")
}

// State reports the lifecycle state for retry affordances in the UI.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ping sends a client-initiated liveness probe, distinct from the server's
// own heartbeat.
func (m *Manager) Ping() error {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	payload, err := json.Marshal(protocol.NewPing())
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, payload)
}

func (m *Manager) dial() {
	conn, err := m.dialer.Dial(m.opts.URL)

	m.mu.Lock()
	if m.suppress {
		m.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		next, _ := transition(m.state, eventDialError)
		m.state = next
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		m.logger.Warn("Dial Failed", zap.Error(err))
		return
	}

	next, ok := transition(m.state, eventOpened)
	if !ok {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.state = next
	m.conn = conn
	m.attempts = 0
	m.mu.Unlock()

	m.logger.Info("Feed Connected", zap.String("url", m.opts.URL))
	go m.readLoop(conn)
}

func (m *Manager) readLoop(c Conn) {
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			m.handleClosed(c, err)
			return
		}
		m.handleMessage(raw)
	}
}

// handleClosed reacts to a lost socket. The conn identity check keeps a
// stale read loop from scheduling a reconnect after Disconnect already
// detached it.
func (m *Manager) handleClosed(c Conn, err error) {
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	next, _ := transition(m.state, eventClosed)
	m.state = next
	if !m.suppress {
		m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	c.Close()
	m.logger.Warn("Feed Connection Lost", zap.Error(err))
}

func (m *Manager) handleMessage(raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		m.logger.Warn("Invalid Feed Message", zap.Error(err))
		return
	}

	switch msg.Type {
	case protocol.TypeSnapshot:
		// queued deltas predate the snapshot and would re-apply stale state
		m.sched.Reset()
		m.store.ApplySnapshot(msg.Entities)
		m.logger.Info("Snapshot Applied", zap.Int("entities", len(msg.Entities)))
	case protocol.TypeUpdate:
		m.sched.Enqueue(msg.Deltas)
	case protocol.TypePong:
		m.logger.Debug("Pong Received", zap.Int64("timestamp", msg.Timestamp))
	default:
		m.logger.Debug("Unhandled Message", zap.String("type", msg.Type))
	}
}

// scheduleReconnectLocked arms the retry timer. Attempts grow on every
// failed or lost connection and only reset after a successful open, so the
// delay walks base, 2x, 4x, up to the cap and stays there.
func (m *Manager) scheduleReconnectLocked() {
	m.attempts++
	delay := backoffDelay(m.opts.ReconnectBase, m.opts.ReconnectCap, m.attempts)
	m.logger.Info("Reconnect Scheduled", zap.Int("attempt", m.attempts), zap.Duration("delay", delay))
	m.reconnect = m.clock.AfterFunc(delay, m.retry)
}

func (m *Manager) retry() {
	m.mu.Lock()
	m.reconnect = nil
	if m.suppress {
		m.mu.Unlock()
		return
	}
	next, ok := transition(m.state, eventConnect)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.mu.Unlock()

	go m.dial()
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}
