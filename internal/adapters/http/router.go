package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/adapters/signal"
	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/config"
	transport "github.com/dkeye/Board/internal/transport/http"
)

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, h *transport.Handlers) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	ctrl := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})
	ws := func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("path", c.FullPath()).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	}

	r.GET("/ws", ws)
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ws", ws)

	authed := api.Group("", h.RequireBearer())
	authed.GET("/rooms", h.LiveRooms)
	authed.GET("/rooms/:id/presence", h.Presence)
	authed.GET("/chats/:id", h.RecentChats)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
