package orch

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/domain"
	"github.com/dkeye/Board/internal/protocol"
	"github.com/dkeye/Board/pkg/metrics"
)

func (o *Orchestrator) SubmitChat(ctx context.Context, sess *Session, req protocol.ChatRequest) {
	o.submit(ctx, sess, domain.EventChat, req.RoomID, req.Message, req.TempID)
}

func (o *Orchestrator) SubmitDraw(ctx context.Context, sess *Session, req protocol.DrawRequest) {
	o.submit(ctx, sess, domain.EventDraw, req.RoomID, req.ShapeData, req.TempID)
}

// submit persists an event and fans it out. The author gets an
// acknowledgment carrying tempID when one was supplied; other members never
// see tempID. Nothing is broadcast unless the event was stored.
func (o *Orchestrator) submit(ctx context.Context, sess *Session, kind domain.EventKind, ref protocol.RoomRef, payload, tempID string) {
	if !o.active(sess) {
		return
	}
	uid := sess.User.ID

	roomID, err := domain.ParseRoomID(string(ref))
	if err != nil {
		metrics.RoomEvents.WithLabelValues(string(kind), "rejected").Inc()
		o.Reply(sess, protocol.NewError(protocol.MsgInvalidRoomID, tempID))
		return
	}
	if !o.Registry.IsMember(uid, roomID) {
		metrics.RoomEvents.WithLabelValues(string(kind), "rejected").Inc()
		o.Reply(sess, protocol.NewError(protocol.MsgNotInRoom, tempID))
		return
	}

	ev, err := o.History.AppendEvent(ctx, domain.Event{
		RoomID:  roomID,
		Author:  sess.User,
		Kind:    kind,
		Payload: payload,
	})
	if err != nil {
		metrics.RoomEvents.WithLabelValues(string(kind), "failed").Inc()
		log.Error().Err(err).Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Str("kind", string(kind)).Msg("persist event failed")
		o.Reply(sess, protocol.NewError(protocol.MsgInternal, tempID))
		return
	}
	metrics.RoomEvents.WithLabelValues(string(kind), "persisted").Inc()

	out := protocol.NewRoomEvent(ev)
	if tempID != "" {
		ack := out
		ack.TempID = tempID
		o.Reply(sess, ack)
	}
	o.broadcast(roomID, uid, out)
	log.Debug().Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Uint64("chat_id", ev.ID).Str("kind", string(kind)).Msg("event stored")
}

// GetShapes replays the room's drawable history in insertion order. Stored
// payloads that do not carry a shape object are skipped.
func (o *Orchestrator) GetShapes(ctx context.Context, sess *Session, ref protocol.RoomRef) {
	if !o.active(sess) {
		return
	}
	uid := sess.User.ID

	roomID, err := domain.ParseRoomID(string(ref))
	if err != nil {
		o.Reply(sess, protocol.NewError(protocol.MsgInvalidRoomID, ""))
		return
	}
	if !o.Registry.IsMember(uid, roomID) {
		o.Reply(sess, protocol.NewError(protocol.MsgNotInRoom, ""))
		return
	}

	events, err := o.History.QueryEvents(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Msg("query history failed")
		o.Reply(sess, protocol.NewError(protocol.MsgInternal, ""))
		return
	}

	shapes := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		if shape, ok := domain.ParseShape(ev.Payload); ok {
			shapes = append(shapes, shape)
		}
	}
	o.Reply(sess, protocol.ShapesData{Type: protocol.TypeShapesData, Shapes: shapes})
	log.Debug().Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Int("scanned", len(events)).Int("shapes", len(shapes)).Msg("shapes replayed")
}
