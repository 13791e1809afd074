package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/protocol"
)

// Options tune the websocket pumps. Zero values fall back to defaults.
// ReadLimit can raise but never lower protocol.MaxFrameSize: a frame that
// passes validation must not trip the transport limit.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit < protocol.MaxFrameSize {
		if o.ReadLimit > 0 {
			log.Warn().Str("module", "signal").Int64("read_limit", o.ReadLimit).Int("min", protocol.MaxFrameSize).Msg("read limit below max frame size, raising")
		}
		o.ReadLimit = protocol.MaxFrameSize
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// pongWait leaves the peer a tenth of a ping period to answer.
func (o Options) pongWait() time.Duration {
	return o.PingPeriod * 10 / 9
}

type SignalWSController struct {
	Orch *orch.Orchestrator
	opts Options
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	return &SignalWSController{
		Orch: o,
		opts: opts.withDefaults(),
	}
}

type WsSignalConn struct {
	id   core.SessionID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:   core.SessionID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) ID() core.SessionID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenFromRequest reads the bearer credential from the handshake: the token
// or access_token query parameter, then the Authorization header.
func TokenFromRequest(r *http.Request) string {
	q := r.URL.Query()
	if t := strings.TrimSpace(q.Get("token")); t != "" {
		return t
	}
	if t := strings.TrimSpace(q.Get("access_token")); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Diagnostic is the plaintext frame written before a failed handshake is closed.
func Diagnostic(err error) string {
	switch {
	case errors.Is(err, core.ErrNoSecret):
		return "No SECRET configured"
	case errors.Is(err, core.ErrNoCredential):
		return "No token found in url"
	case errors.Is(err, core.ErrInvalidPayload):
		return "Invalid token payload"
	default:
		return "Invalid or expired token"
	}
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := TokenFromRequest(c.Request)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	log.Info().Str("module", "signal").Str("sid", string(conn.ID())).Str("remote", c.ClientIP()).Msg("new WS connection")

	sess, err := ctl.Orch.Open(ctx, token, conn)
	if err != nil {
		ctl.reject(conn, err)
		return
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sess, conn)
}

// reject writes the diagnostic directly since no pump runs yet, then closes.
func (ctl *SignalWSController) reject(c *WsSignalConn, err error) {
	defer c.Close()

	deadline := time.Now().Add(ctl.opts.WriteWait)
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return
	}
	if werr := c.conn.WriteMessage(websocket.TextMessage, []byte(Diagnostic(err))); werr != nil {
		log.Warn().Err(werr).Str("module", "signal").Str("sid", string(c.ID())).Msg("write diagnostic")
		return
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""), deadline)
}
