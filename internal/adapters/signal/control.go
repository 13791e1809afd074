package signal

import (
	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/protocol"
)

func (ctl *SignalWSController) handlePing(sess *orch.Session) {
	ctl.Orch.Reply(sess, protocol.Pong{Type: protocol.TypePong})
}
