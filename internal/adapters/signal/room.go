package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/protocol"
)

func (ctl *SignalWSController) handleJoin(ctx context.Context, sess *orch.Session, data []byte) {
	var p protocol.RoomRequest
	if err := protocol.Decode(data, &p); err != nil {
		log.Warn().Err(err).Strs("fields", protocol.RejectedFields(err)).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad join payload")
		ctl.Orch.Reply(sess, protocol.Rejection(err, ""))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Str("room_id", string(p.RoomID)).Msg("join")
	ctl.Orch.JoinRoom(ctx, sess, p.RoomID)
}

// handleLeave leaves one room; the connection and other memberships stay.
func (ctl *SignalWSController) handleLeave(ctx context.Context, sess *orch.Session, data []byte) {
	var p protocol.RoomRequest
	if err := protocol.Decode(data, &p); err != nil {
		log.Warn().Err(err).Strs("fields", protocol.RejectedFields(err)).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad leave payload")
		ctl.Orch.Reply(sess, protocol.Rejection(err, ""))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Str("room_id", string(p.RoomID)).Msg("leave")
	ctl.Orch.LeaveRoom(ctx, sess, p.RoomID)
}
