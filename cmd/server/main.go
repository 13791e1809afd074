package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Board/internal/adapters/http"
	"github.com/dkeye/Board/internal/app"
	"github.com/dkeye/Board/internal/app/orch"
	"github.com/dkeye/Board/internal/auth"
	"github.com/dkeye/Board/internal/cache"
	"github.com/dkeye/Board/internal/config"
	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/database"
	"github.com/dkeye/Board/internal/store"
	transport "github.com/dkeye/Board/internal/transport/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()
	if err := database.AutoMigrate(db, store.Migrate); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	st := store.New(db)

	var rooms core.RoomDirectory = st
	if cfg.Redis.URL != "" {
		rdb, err := newRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		defer func() { _ = rdb.Close() }()
		rooms = cache.NewRoomCache(rdb, st, cfg.Redis.RoomTTL)
	}

	var verifier core.IdentityVerifier
	if v, err := auth.NewJWTVerifier(auth.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}); err != nil {
		log.Warn().Err(err).Msg("jwt secret not set, every connection will be rejected")
	} else {
		verifier = v
	}

	reg := app.NewRegistry()
	o := &orch.Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		History:  st,
		Verifier: verifier,
		Policy:   app.SimplePolicy{},
	}
	handlers := &transport.Handlers{
		Verifier:    verifier,
		Registry:    reg,
		History:     st,
		RecentLimit: cfg.History.RecentLimit,
	}

	r := router.SetupRouter(ctx, cfg, o, handlers)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Board server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogging(cfg *config.Config) {
	if cfg.Mode == "debug" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// newRedis only fails on a bad URL; an unreachable server is logged and the
// room cache falls back to the database per lookup.
func newRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, room cache degraded")
	} else {
		log.Info().Str("addr", opts.Addr).Msg("room cache enabled")
	}
	return rdb, nil
}
