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

	router "github.com/lingora/gateway/internal/adapters/http"
	"github.com/lingora/gateway/internal/auth"
	"github.com/lingora/gateway/internal/config"
	"github.com/lingora/gateway/internal/domain"
	"github.com/lingora/gateway/internal/gateway"
	"github.com/lingora/gateway/internal/policy"
	"github.com/lingora/gateway/internal/registry"
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

	httpClient := &http.Client{Timeout: cfg.LookupTimeout}
	authority := auth.NewHTTPAuthority(cfg.AuthorityURL, httpClient)
	resolver := auth.NewResolver(authority, cfg.Secret, cfg.Issuer, cfg.LookupTimeout)

	engine := &policy.Engine{
		Oracle:      policy.NewHTTPOracle(cfg.OracleURL, httpClient),
		Now:         time.Now,
		Loc:         time.Local,
		StudentLead: cfg.StudentLead,
		TeacherLead: cfg.TeacherLead,
		Timeout:     cfg.LookupTimeout,
	}

	reconnect := gateway.ReconnectPolicy(cfg.ReconnectPolicy)

	// Two independent room subsystems, one registry each. No shared
	// global state between them.
	lessonRooms := registry.New(cfg.OpenRoomCapacity, cfg.SweepInterval)
	lobbyRooms := registry.New(cfg.OpenRoomCapacity, cfg.SweepInterval)
	go lessonRooms.Run(ctx)
	go lobbyRooms.Run(ctx)

	lesson := gateway.New(resolver, engine, lessonRooms, domain.RoomScheduled, reconnect)
	lobby := gateway.New(resolver, engine, lobbyRooms, domain.RoomOpen, reconnect)

	r := router.SetupRouter(ctx, cfg, lesson, lobby)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("session gateway started")
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
