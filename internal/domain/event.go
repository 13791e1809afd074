package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type EventKind string

const (
	EventChat EventKind = "chat"
	EventDraw EventKind = "draw"
)

// Event is one persisted room event. ID and CreatedAt are assigned by the
// history store; the event is immutable once stored.
type Event struct {
	ID        uint64
	RoomID    RoomID
	Author    User
	Kind      EventKind
	Payload   string
	CreatedAt time.Time
}

type shapeEnvelope struct {
	Shape json.RawMessage `json:"shape"`
}

type shapeHeader struct {
	Type string `json:"type"`
}

// ParseShape extracts the drawing operation from a serialized payload of the
// form {"shape": {"type": ...}}. ok is false for anything else.
func ParseShape(payload string) (json.RawMessage, bool) {
	var env shapeEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || len(env.Shape) == 0 {
		return nil, false
	}
	var hdr shapeHeader
	if err := json.Unmarshal(env.Shape, &hdr); err != nil {
		return nil, false
	}
	if strings.TrimSpace(hdr.Type) == "" {
		return nil, false
	}
	return env.Shape, true
}
