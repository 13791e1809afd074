package orch

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/domain"
	"github.com/dkeye/Board/internal/protocol"
)

func (o *Orchestrator) JoinRoom(ctx context.Context, sess *Session, ref protocol.RoomRef) {
	if !o.active(sess) {
		return
	}
	uid := sess.User.ID

	roomID, err := domain.ParseRoomID(string(ref))
	if err != nil {
		o.Reply(sess, protocol.NewError(protocol.MsgInvalidRoomID, ""))
		return
	}
	if o.Registry.IsMember(uid, roomID) {
		o.Reply(sess, protocol.NewError(protocol.MsgAlreadyInRoom, ""))
		return
	}

	room, err := o.Rooms.LookupRoom(ctx, roomID)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		o.Reply(sess, protocol.NewError(protocol.MsgRoomNotFound, ""))
		return
	case err != nil:
		log.Error().Err(err).Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Msg("room lookup failed")
		o.Reply(sess, protocol.NewError(protocol.MsgInternal, ""))
		return
	}

	if !o.Registry.JoinVia(uid, sess.Conn, roomID) {
		if !o.active(sess) {
			return
		}
		o.Reply(sess, protocol.NewError(protocol.MsgAlreadyInRoom, ""))
		return
	}
	o.observeRooms()

	members := o.Registry.MembersOf(roomID)
	ids := make([]domain.UserID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	o.Reply(sess, protocol.JoinRoomSuccess{
		Type:        protocol.TypeJoinRoomSuccess,
		RoomID:      roomID,
		RoomInfo:    room,
		UsersInRoom: ids,
	})
	o.broadcast(roomID, uid, protocol.PresenceNotice{
		Type:     protocol.TypeUserJoined,
		UserID:   uid,
		UserName: sess.User.Username,
		RoomID:   roomID,
	})
	log.Info().Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Int("members", len(ids)).Msg("joined room")
}

// LeaveRoom notifies remaining members only; an emptied room has nobody left
// to tell.
func (o *Orchestrator) LeaveRoom(_ context.Context, sess *Session, ref protocol.RoomRef) {
	if !o.active(sess) {
		return
	}
	uid := sess.User.ID

	roomID, err := domain.ParseRoomID(string(ref))
	if err != nil {
		o.Reply(sess, protocol.NewError(protocol.MsgInvalidRoomID, ""))
		return
	}

	left, emptied := o.Registry.Leave(uid, roomID)
	if !left {
		o.Reply(sess, protocol.NewError(protocol.MsgNotInRoom, ""))
		return
	}
	o.observeRooms()

	o.Reply(sess, protocol.LeaveRoomSuccess{Type: protocol.TypeLeaveRoomSuccess, RoomID: roomID})
	if !emptied {
		o.broadcast(roomID, uid, protocol.PresenceNotice{
			Type:     protocol.TypeUserLeft,
			UserID:   uid,
			UserName: sess.User.Username,
			RoomID:   roomID,
		})
	}
	log.Info().Str("module", "orch").Str("uid", string(uid)).Str("room", string(roomID)).Bool("emptied", emptied).Msg("left room")
}

// Presence lists the members currently in room.
func (o *Orchestrator) Presence(room domain.RoomID) []domain.Member {
	return o.Registry.MembersOf(room)
}
