// Package protocol defines the JSON frames exchanged over the room socket.
// Every frame is an object discriminated by its "type" field.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Board/internal/domain"
)

// Inbound types.
const (
	TypeJoinRoom  = "join_room"
	TypeLeaveRoom = "leave_room"
	TypeChat      = "chat"
	TypeDraw      = "draw"
	TypeGetShapes = "get_shapes"
	TypePing      = "ping"
)

// Outbound types. Chat and draw events reuse TypeChat and TypeDraw.
const (
	TypeJoinRoomSuccess  = "join_room_success"
	TypeLeaveRoomSuccess = "leave_room_success"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypeShapesData       = "shapes_data"
	TypeError            = "error"
	TypePong             = "pong"
)

// Error texts sent to the originating connection only.
const (
	MsgInvalidFormat = "Invalid message format"
	MsgUnknownType   = "Unknown message type"
	MsgAlreadyInRoom = "You are already in this room"
	MsgNotInRoom     = "You are not in this room"
	MsgRoomNotFound  = "Room does not exist"
	MsgInvalidRoomID = "Invalid room id format"
	MsgInternal      = "Internal server error"
)

var ErrMalformed = errors.New("malformed frame")

// Size limits. MaxFrameSize bounds a whole inbound frame on the transport and
// must admit any frame whose fields pass validation, including JSON escaping
// of shape_data.
const (
	MaxMessageLen   = 4000
	MaxShapeDataLen = 256 << 10
	MaxTempIDLen    = 128
	MaxFrameSize    = 2 << 20
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t as UTC ISO-8601 with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// RoomRef accepts a room id sent either as a JSON string or a JSON number.
type RoomRef string

func (r *RoomRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RoomRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("room_id: %w", err)
	}
	*r = RoomRef(n.String())
	return nil
}

type envelope struct {
	Type string `json:"type"`
}

// ReadType extracts the discriminator. Frames that are not JSON objects are
// malformed; a missing type yields "" and is treated as unknown.
func ReadType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env.Type, nil
}

// Decode unmarshals and validates a payload. On failure v may still hold the
// fields that did decode, so callers can echo a correlation token.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

// RoomRequest is the payload of join_room, leave_room and get_shapes.
type RoomRequest struct {
	RoomID RoomRef `json:"room_id" validate:"required"`
}

type ChatRequest struct {
	RoomID  RoomRef `json:"room_id" validate:"required"`
	Message string  `json:"message" validate:"required,max=4000"`
	TempID  string  `json:"temp_id,omitempty" validate:"max=128"`
}

type DrawRequest struct {
	RoomID    RoomRef `json:"room_id" validate:"required"`
	ShapeData string  `json:"shape_data" validate:"required,max=262144"`
	TempID    string  `json:"temp_id,omitempty" validate:"max=128"`
}

type JoinRoomSuccess struct {
	Type        string          `json:"type"`
	RoomID      domain.RoomID   `json:"room_id"`
	RoomInfo    domain.Room     `json:"room_info"`
	UsersInRoom []domain.UserID `json:"users_in_room"`
}

type LeaveRoomSuccess struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room_id"`
}

// PresenceNotice is user_joined / user_left.
type PresenceNotice struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"user_id"`
	UserName string        `json:"user_name"`
	RoomID   domain.RoomID `json:"room_id"`
}

// RoomEvent is a persisted chat or draw event. TempID is set only on the
// acknowledgment sent back to the author.
type RoomEvent struct {
	Type      string        `json:"type"`
	RoomID    domain.RoomID `json:"room_id"`
	UserID    domain.UserID `json:"user_id"`
	UserName  string        `json:"user_name"`
	Message   string        `json:"message,omitempty"`
	ShapeData string        `json:"shape_data,omitempty"`
	ChatID    uint64        `json:"chat_id"`
	Timestamp string        `json:"timestamp"`
	TempID    string        `json:"temp_id,omitempty"`
}

type ShapesData struct {
	Type   string            `json:"type"`
	Shapes []json.RawMessage `json:"shapes"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	TempID  string `json:"temp_id,omitempty"`
}

type Pong struct {
	Type string `json:"type"`
}

func NewError(msg, tempID string) Error {
	return Error{Type: TypeError, Message: msg, TempID: tempID}
}

// NewRoomEvent builds the canonical broadcast payload for a stored event.
func NewRoomEvent(ev domain.Event) RoomEvent {
	out := RoomEvent{
		Type:      string(ev.Kind),
		RoomID:    ev.RoomID,
		UserID:    ev.Author.ID,
		UserName:  ev.Author.Username,
		ChatID:    ev.ID,
		Timestamp: FormatTimestamp(ev.CreatedAt),
	}
	switch ev.Kind {
	case domain.EventDraw:
		out.ShapeData = ev.Payload
	default:
		out.Message = ev.Payload
	}
	return out
}
