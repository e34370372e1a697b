package broadcast

import (
	"encoding/json"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/protocol"
)

const (
	maxMessageSize = 512 * 1024
)

// frame is one outbound wire frame queued for the write pump.
type frame struct {
	op      ws.OpCode
	payload []byte
}

// Compile-time check to ensure Session implements ClientInterface
var _ ClientInterface = (*Session)(nil)

// Session is one live feed connection. The hub owns registration and
// liveness policy; the session owns its read/write pumps. All outbound
// traffic goes through the send channel and is dropped when the buffer is
// full, so a slow consumer can never block the hub.
type Session struct {
	id     string
	conn   net.Conn
	hub    *Hub
	logger *zap.Logger

	send chan frame
	done chan struct{}

	created      time.Time
	lastPong     atomic.Int64 // UnixNano of the last pong received
	awaitingPong atomic.Bool  // set on ping, cleared on pong

	writeWait time.Duration
	pongWait  time.Duration

	closeOnce sync.Once
}

func NewSession(id string, conn net.Conn, h *Hub, logger *zap.Logger) *Session {
	s := &Session{
		id:        id,
		conn:      conn,
		hub:       h,
		logger:    logger,
		send:      make(chan frame, h.sendBuffer),
		done:      make(chan struct{}),
		created:   time.Now(),
		writeWait: h.writeWait,
		pongWait:  3 * h.heartbeatInterval,
	}
	s.lastPong.Store(s.created.UnixNano())
	return s
}

func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

func (s *Session) ID() string { return s.id }

// Close signals the write pump to emit a close frame and shut the conn.
// Safe to call from the hub and the read pump concurrently.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// SendBytes queues one text frame. Drops and reports false when the buffer
// is full (backpressure).
func (s *Session) SendBytes(b []byte) bool {
	return s.sendFrame(frame{op: ws.OpText, payload: b})
}

// Ping queues a ping frame and marks the session as owing a pong. A session
// still marked on the next heartbeat pass gets reaped.
func (s *Session) Ping() bool {
	s.awaitingPong.Store(true)
	return s.sendFrame(frame{op: ws.OpPing})
}

func (s *Session) AwaitingPong() bool { return s.awaitingPong.Load() }

func (s *Session) LastPong() time.Time { return time.Unix(0, s.lastPong.Load()) }

func (s *Session) sendFrame(f frame) bool {
	select {
	case s.send <- f:
		return true
	default:
		// Drop frame if buffer full (Backpressure)
		return false
	}
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(s.pongWait))

	for {
		header, err := ws.ReadHeader(s.conn)
		if err != nil {
			return
		}

		if header.Length > int64(maxMessageSize) {
			s.logger.Warn("Msg Too Big", zap.Int64("size", header.Length))
			return
		}
		if !header.Fin {
			s.logger.Warn("Client Sent Fragmented Message (not supported)")
			return
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			return
		}
		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpPing:
			s.sendFrame(frame{op: ws.OpPong, payload: payload})
		case ws.OpPong:
			s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
			s.lastPong.Store(time.Now().UnixNano())
			s.awaitingPong.Store(false)
		case ws.OpText:
			s.handleText(payload)
		}
	}
}

// handleText processes one client message. Malformed payloads are logged
// and dropped; they never tear the session down.
func (s *Session) handleText(payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		s.logger.Warn("Invalid Client Message", zap.String("session_id", s.id), zap.Error(err))
		return
	}

	switch msg.Type {
	case protocol.TypePing:
		pong, err := json.Marshal(protocol.NewPong(s.hub.now()))
		if err == nil {
			s.SendBytes(pong)
		}
	default:
		s.logger.Warn("Unexpected Client Message", zap.String("session_id", s.id), zap.String("type", msg.Type))
	}
}

func (s *Session) writePump() {
	defer s.conn.Close()

	for {
		select {
		case f := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := wsutil.WriteServerMessage(s.conn, f.op, f.payload); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			s.conn.Write(ws.CompiledClose)
			return
		}
	}
}
