package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

const (
	TypeSnapshot = "snapshot"
	TypeUpdate   = "update"
	TypePing     = "ping"
	TypePong     = "pong"
)

// Message is the text-framed JSON envelope for every frame on the feed
// socket. Exactly one payload field is populated per type: Entities for
// "snapshot", Deltas for "update", neither for "ping"/"pong".
type Message struct {
	Type      string              `json:"type"`
	Timestamp int64               `json:"timestamp,omitempty"` // unix milli
	Entities  []models.Stock      `json:"entities,omitempty"`
	Deltas    []models.StockDelta `json:"deltas,omitempty"`
}

func NewSnapshot(timestamp int64, entities []models.Stock) Message {
	return Message{Type: TypeSnapshot, Timestamp: timestamp, Entities: entities}
}

func NewUpdate(timestamp int64, deltas []models.StockDelta) Message {
	return Message{Type: TypeUpdate, Timestamp: timestamp, Deltas: deltas}
}

func NewPing() Message {
	return Message{Type: TypePing}
}

func NewPong(timestamp int64) Message {
	return Message{Type: TypePong, Timestamp: timestamp}
}

// Decode parses a frame payload and validates its type tag. Undecodable
// payloads and unknown types are errors; the caller decides whether they are
// fatal (they are not, per the drop-and-log contract).
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	switch msg.Type {
	case TypeSnapshot, TypeUpdate, TypePing, TypePong:
		return msg, nil
	default:
		return Message{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}
