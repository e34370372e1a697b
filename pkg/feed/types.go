package feed

import (
	"time"

	"github.com/gorilla/websocket"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable pending callback.
type Timer interface {
	Stop() bool
}

// Conn is the minimal surface of a live feed socket.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens the feed socket.
type Dialer interface {
	Dial(url string) (Conn, error)
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

type realTimer struct{ *time.Timer }

// GorillaDialer dials with the default websocket dialer.
type GorillaDialer struct{}

func (GorillaDialer) Dial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ConnState is the consumer-visible connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// connEvent is a lifecycle input to the state machine.
type connEvent int

const (
	eventConnect    connEvent = iota // connect requested
	eventOpened                      // dial succeeded
	eventDialError                   // dial failed
	eventClosed                      // established socket lost
	eventDisconnect                  // disconnect requested
)

// transition maps one event onto the current state. ok is false when the
// event has no effect there, which is how connect stays idempotent while
// connecting or connected.
func transition(s ConnState, ev connEvent) (next ConnState, ok bool) {
	switch ev {
	case eventConnect:
		if s == StateConnecting || s == StateConnected {
			return s, false
		}
		return StateConnecting, true
	case eventOpened:
		if s != StateConnecting {
			return s, false
		}
		return StateConnected, true
	case eventDialError:
		if s != StateConnecting {
			return s, false
		}
		return StateError, true
	case eventClosed:
		if s != StateConnected {
			return s, false
		}
		return StateDisconnected, true
	case eventDisconnect:
		return StateDisconnected, true
	}
	return s, false
}
