package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Board/internal/app"
	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/config"
	"github.com/dkeye/Board/internal/database/testutil"
	"github.com/dkeye/Board/internal/store"
	transport "github.com/dkeye/Board/internal/transport/http"
)

func TestSetupRouterRoutes(t *testing.T) {
	st := store.New(testutil.MustOpenTestDB(t, store.Migrate))
	reg := app.NewRegistry()
	o := &orch.Orchestrator{Registry: reg, Rooms: st, History: st, Policy: app.SimplePolicy{}}
	h := &transport.Handlers{Registry: reg, History: st}

	r := SetupRouter(context.Background(), &config.Config{Mode: "test"}, o, h)

	cases := []struct {
		path string
		code int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/rooms", http.StatusServiceUnavailable},
		{"/api/rooms/1/presence", http.StatusServiceUnavailable},
		{"/api/chats/1", http.StatusServiceUnavailable},
		{"/ws", http.StatusBadRequest},
		{"/api/ws", http.StatusBadRequest},
		{"/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.Equal(t, tc.code, w.Code, tc.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.True(t, strings.Contains(w.Body.String(), "board_ws_connections"))
}
