package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "huddle/internal/adapters/http"
	"huddle/internal/adapters/ws"
	"huddle/internal/auth"
	"huddle/internal/config"
	"huddle/internal/core"
	"huddle/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("store close")
		}
	}()

	users := storage.NewUserRepository(db)
	rooms := storage.NewRoomRepository(db)
	members := storage.NewMembershipRepository(db)
	messages := storage.NewMessageRepository(db)

	registry := core.NewRegistry()
	fanout := core.NewFanout(registry)
	coord := core.NewCoordinator(registry, fanout, members, messages, rooms)

	tokens := auth.NewTokens(cfg.Secret, cfg.TokenTTL)

	api := &router.API{
		Users:    users,
		Rooms:    rooms,
		Members:  members,
		Messages: messages,
		Tokens:   tokens,
	}
	wsCtl := ws.NewController(coord, tokens, cfg.ReadLimit, cfg.SendBuffer)

	r := router.SetupRouter(ctx, cfg, api, wsCtl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
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
