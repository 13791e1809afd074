package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/protocol"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(c.ID())).Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(ctl.opts.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(c.ID())).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(c.ID())).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.ID())).Msg("writePump ping")
				return
			}
		}
	}
}

// readPump owns the session: whichever way the transport ends, presence
// cleanup runs once when it returns.
func (ctl *SignalWSController) readPump(ctx context.Context, sess *orch.Session, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(c.ID())).Str("uid", string(sess.User.ID)).Msg("readPump closing")
		ctl.Orch.Close(sess)
		c.Close()
	}()

	pongWait := ctl.opts.pongWait()
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.ID())).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleSignal(ctx, sess, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sess *orch.Session, data []byte) {
	typ, err := protocol.ReadType(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad json")
		ctl.replyError(sess, protocol.MsgInvalidFormat, "")
		return
	}

	switch typ {
	case protocol.TypeJoinRoom:
		ctl.handleJoin(ctx, sess, data)
	case protocol.TypeLeaveRoom:
		ctl.handleLeave(ctx, sess, data)
	case protocol.TypeChat:
		ctl.handleChat(ctx, sess, data)
	case protocol.TypeDraw:
		ctl.handleDraw(ctx, sess, data)
	case protocol.TypeGetShapes:
		ctl.handleGetShapes(ctx, sess, data)
	case protocol.TypePing:
		ctl.handlePing(sess)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sess.ID)).Str("type", typ).Msg("unknown signal")
		ctl.replyError(sess, protocol.MsgUnknownType, "")
	}
}

func (ctl *SignalWSController) replyError(sess *orch.Session, msg, tempID string) {
	ctl.Orch.Reply(sess, protocol.NewError(msg, tempID))
}
