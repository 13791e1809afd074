package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Board/internal/app"
	"github.com/dkeye/Board/internal/auth"
	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/database/testutil"
	"github.com/dkeye/Board/internal/domain"
	"github.com/dkeye/Board/internal/store"
)

type nopConn struct{ id core.SessionID }

func (c nopConn) ID() core.SessionID       { return c.id }
func (c nopConn) TrySend(core.Frame) error { return nil }
func (c nopConn) Close()                   {}

type fixture struct {
	engine *gin.Engine
	h      *Handlers
	store  *store.Store
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(testutil.MustOpenTestDB(t, store.Migrate))
	verifier, err := auth.NewJWTVerifier(auth.JWTConfig{Secret: "rest-secret"})
	require.NoError(t, err)
	token, err := verifier.Sign(domain.User{ID: "a", Username: "alice"}, time.Hour)
	require.NoError(t, err)

	h := &Handlers{Verifier: verifier, Registry: app.NewRegistry(), History: st, RecentLimit: 2}
	r := gin.New()
	r.GET("/healthz", h.Health)
	authed := r.Group("/api", h.RequireBearer())
	authed.GET("/rooms", h.LiveRooms)
	authed.GET("/rooms/:id/presence", h.Presence)
	authed.GET("/chats/:id", h.RecentChats)
	authed.GET("/me", func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, u)
	})

	return &fixture{engine: r, h: h, store: st, token: token}
}

func (f *fixture) do(t *testing.T, path string, bearer bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestHealthReportsStats(t *testing.T) {
	f := newFixture(t)
	f.h.Registry.Register(domain.User{ID: "a"}, nopConn{id: "s1"})
	f.h.Registry.Join("a", "3")

	w := f.do(t, "/healthz", false)
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, app.Stats{Users: 1, Rooms: 1}, resp.Stats)
}

func TestRequireBearer(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "/api/me", false)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"Invalid or expired token"}`, w.Body.String())

	w = f.do(t, "/api/me", true)
	require.Equal(t, http.StatusOK, w.Code)
	var u domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	require.Equal(t, domain.UserID("a"), u.ID)
}

func TestRequireBearerWithoutVerifier(t *testing.T) {
	f := newFixture(t)
	f.h.Verifier = nil

	w := f.do(t, "/api/me", true)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPresence(t *testing.T) {
	f := newFixture(t)
	f.h.Registry.Register(domain.User{ID: "b", Username: "bob"}, nopConn{id: "s2"})
	f.h.Registry.Register(domain.User{ID: "a", Username: "alice"}, nopConn{id: "s1"})
	f.h.Registry.Join("a", "5")
	f.h.Registry.Join("b", "5")

	w := f.do(t, "/api/rooms/5/presence", true)
	require.Equal(t, http.StatusOK, w.Code)
	var info core.RoomInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	require.Equal(t, domain.RoomID("5"), info.ID)
	require.Len(t, info.Members, 2)
	require.Equal(t, domain.UserID("a"), info.Members[0].ID)

	w = f.do(t, "/api/rooms/abc/presence", true)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLiveRooms(t *testing.T) {
	f := newFixture(t)
	f.h.Registry.Register(domain.User{ID: "a", Username: "alice"}, nopConn{id: "s1"})
	f.h.Registry.Join("a", "5")

	w := f.do(t, "/api/rooms", true)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Rooms []core.RoomInfo `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rooms, 1)
	require.Equal(t, domain.RoomID("5"), resp.Rooms[0].ID)
	require.Equal(t, "alice", resp.Rooms[0].Members[0].Username)
}

func TestRecentChats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room, err := f.store.CreateRoom(ctx, "r", "", "a")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := f.store.AppendEvent(ctx, domain.Event{
			RoomID:  room.ID,
			Author:  domain.User{ID: "a", Username: "alice"},
			Kind:    domain.EventChat,
			Payload: fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
	}
	shape := `{"shape":{"type":"rect","x":1}}`
	_, err = f.store.AppendEvent(ctx, domain.Event{
		RoomID:  room.ID,
		Author:  domain.User{ID: "b", Username: "bob"},
		Kind:    domain.EventDraw,
		Payload: shape,
	})
	require.NoError(t, err)

	w := f.do(t, "/api/chats/"+string(room.ID), true)
	require.Equal(t, http.StatusOK, w.Code)
	var resp RecentChatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	require.Equal(t, "m3", resp.Messages[0].Message)
	require.False(t, resp.Messages[0].IsDrawing)
	require.Equal(t, "alice", resp.Messages[0].UserName)
	require.Equal(t, shape, resp.Messages[1].Message)
	require.True(t, resp.Messages[1].IsDrawing)
	require.Equal(t, "bob", resp.Messages[1].UserName)

	var raw struct {
		Messages []map[string]any `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.Equal(t, true, raw.Messages[1]["is_drawing"])
	require.Equal(t, false, raw.Messages[0]["is_drawing"])
	require.NotContains(t, raw.Messages[1], "shape_data")

	w = f.do(t, "/api/chats/"+string(room.ID)+"?limit=10", true)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 5)
	require.Equal(t, "m0", resp.Messages[0].Message)

	w = f.do(t, "/api/chats/"+string(room.ID)+"?limit=0", true)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "/api/chats/x", true)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
