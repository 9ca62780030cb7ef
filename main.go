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

	"github.com/rs/zerolog/log"

	"flightsim-server/config"
	"flightsim-server/logging"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	if cfg.MintToken {
		token, err := MintStatusToken(cfg.StatusSecret, statusTokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	world := NewWorld(WorldConfigFrom(cfg))
	go world.Run(ctx)

	hub := NewHub(cfg.MaxConnsPerIP, cfg.MaxConns)
	go hub.Run(ctx)

	mux := SetupRoutes(hub, world, RouteConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		StatusSecret:   cfg.StatusSecret,
		ClientRate:     cfg.ClientRate,
		ClientBurst:    cfg.ClientBurst,
	})
	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Dur("tick", cfg.TickInterval).
			Str("scope", cfg.SnapshotScope).
			Int("maxPlayers", cfg.MaxPlayers).
			Msg("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Close()
	}
}
