package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/protocol"
)

// Decode failures still echo temp_id when it was readable so the client can
// roll back its optimistic entry.

func (ctl *SignalWSController) handleChat(ctx context.Context, sess *orch.Session, data []byte) {
	var p protocol.ChatRequest
	if err := protocol.Decode(data, &p); err != nil {
		log.Warn().Err(err).Strs("fields", protocol.RejectedFields(err)).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad chat payload")
		ctl.Orch.Reply(sess, protocol.Rejection(err, p.TempID))
		return
	}
	ctl.Orch.SubmitChat(ctx, sess, p)
}

func (ctl *SignalWSController) handleDraw(ctx context.Context, sess *orch.Session, data []byte) {
	var p protocol.DrawRequest
	if err := protocol.Decode(data, &p); err != nil {
		log.Warn().Err(err).Strs("fields", protocol.RejectedFields(err)).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad draw payload")
		ctl.Orch.Reply(sess, protocol.Rejection(err, p.TempID))
		return
	}
	ctl.Orch.SubmitDraw(ctx, sess, p)
}

func (ctl *SignalWSController) handleGetShapes(ctx context.Context, sess *orch.Session, data []byte) {
	var p protocol.RoomRequest
	if err := protocol.Decode(data, &p); err != nil {
		log.Warn().Err(err).Strs("fields", protocol.RejectedFields(err)).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad get_shapes payload")
		ctl.Orch.Reply(sess, protocol.Rejection(err, ""))
		return
	}
	ctl.Orch.GetShapes(ctx, sess, p.RoomID)
}
