package orch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/app"
	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/domain"
	"github.com/dkeye/Board/pkg/metrics"
)

// Orchestrator drives the per-connection session state machine and routes
// room events. Registry is the only shared mutable state it touches.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomDirectory
	History  core.HistoryStore
	Verifier core.IdentityVerifier
	Policy   app.Policy
}

// Session is the server side of one live connection.
type Session struct {
	ID   core.SessionID
	User domain.User
	Conn core.SignalConnection

	state core.StateCell
	once  sync.Once
}

func (s *Session) State() core.SessionState { return s.state.Load() }

// Open authenticates a freshly accepted connection and registers it.
// Any error is fatal for the connection; the returned error wraps one of the
// core authentication sentinels.
func (o *Orchestrator) Open(ctx context.Context, token string, conn core.SignalConnection) (*Session, error) {
	sess := &Session{ID: conn.ID(), Conn: conn}

	user, err := o.authenticate(ctx, token)
	if err != nil {
		sess.state.Advance(core.StateClosed)
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Msg("authentication failed")
		return nil, err
	}
	sess.User = user
	sess.state.Advance(core.StateAuthenticated)
	metrics.AuthAttempts.WithLabelValues("success").Inc()
	metrics.Connections.Inc()

	if prev := o.Registry.Register(user, conn); prev != nil && prev != conn {
		log.Info().Str("module", "orch").Str("uid", string(user.ID)).Str("old_sid", string(prev.ID())).Str("sid", string(sess.ID)).Msg("closing superseded connection")
		prev.Close()
	}
	o.observeRooms()

	log.Info().Str("module", "orch").Str("uid", string(user.ID)).Str("name", user.Username).Str("sid", string(sess.ID)).Msg("session authenticated")
	return sess, nil
}

func (o *Orchestrator) authenticate(ctx context.Context, token string) (domain.User, error) {
	if o.Verifier == nil {
		return domain.User{}, core.ErrNoSecret
	}
	if token == "" {
		return domain.User{}, core.ErrNoCredential
	}
	user, err := o.Verifier.Verify(ctx, token)
	if err == nil {
		return user, nil
	}
	for _, known := range []error{core.ErrNoSecret, core.ErrNoCredential, core.ErrInvalidCredential, core.ErrInvalidPayload} {
		if errors.Is(err, known) {
			return domain.User{}, err
		}
	}
	return domain.User{}, fmt.Errorf("%w: %v", core.ErrInvalidCredential, err)
}

// Close moves the session to Closed and removes its presence. It runs its
// cleanup once no matter how many times transport errors and closes report it.
// Per-room user_left notices are not sent on this path.
func (o *Orchestrator) Close(sess *Session) {
	if sess == nil {
		return
	}
	sess.once.Do(func() {
		wasAuthenticated := sess.State() == core.StateAuthenticated
		sess.state.Advance(core.StateClosed)
		if !wasAuthenticated {
			return
		}
		rooms := o.Registry.Unregister(sess.User.ID, sess.Conn)
		metrics.Connections.Dec()
		o.observeRooms()
		log.Info().Str("module", "orch").Str("uid", string(sess.User.ID)).Str("sid", string(sess.ID)).Int("rooms", len(rooms)).Msg("session closed")
	})
}

// active reports whether sess may still act on behalf of its user.
func (o *Orchestrator) active(sess *Session) bool {
	return sess != nil && sess.State() == core.StateAuthenticated && o.Registry.Owns(sess.User.ID, sess.Conn)
}

// Reply sends v to the session's own connection only.
func (o *Orchestrator) Reply(sess *Session, v any) {
	o.send(app.Recipient{User: sess.User, Conn: sess.Conn}, v)
}

func (o *Orchestrator) send(to app.Recipient, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal outbound frame")
		return false
	}
	return o.deliver(to, b)
}

// broadcast marshals v once and delivers it to one snapshot of the room's
// members, skipping exclude. It returns the number of queued deliveries.
func (o *Orchestrator) broadcast(room domain.RoomID, exclude domain.UserID, v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal broadcast frame")
		return 0
	}
	sent := 0
	for _, to := range o.Registry.Recipients(room, exclude) {
		if o.deliver(to, b) {
			sent++
		}
	}
	log.Debug().Str("module", "orch").Str("room", string(room)).Int("sent_to", sent).Msg("broadcast result")
	return sent
}

func (o *Orchestrator) deliver(to app.Recipient, frame core.Frame) bool {
	err := to.Conn.TrySend(frame)
	if err == nil {
		return true
	}
	if !errors.Is(err, core.ErrBackpressure) {
		// Closing connections are unregistered by their own session.
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(to.Conn.ID())).Msg("skip recipient")
		return false
	}
	metrics.BroadcastDropped.Inc()
	action := app.NoAction
	if o.Policy != nil {
		action = o.Policy.OnBackPressure(to.User.ID, to.Conn)
	}
	switch action {
	case app.KickMember:
		log.Warn().Str("module", "orch").Str("uid", string(to.User.ID)).Str("sid", string(to.Conn.ID())).Msg("kicking slow member")
		to.Conn.Close()
	case app.DropFrame, app.NoAction:
	}
	return false
}

func (o *Orchestrator) observeRooms() {
	metrics.LiveRooms.Set(float64(o.Registry.Stats().Rooms))
}
