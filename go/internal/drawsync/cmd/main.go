package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/drawsync/go/clients/rooms"
	"github.com/mcdev12/drawsync/go/internal/drawsync/conn"
	"github.com/mcdev12/drawsync/go/internal/drawsync/credentials"
	"github.com/mcdev12/drawsync/go/internal/drawsync/game"
	"github.com/mcdev12/drawsync/go/internal/drawsync/session"
	"github.com/mcdev12/drawsync/go/internal/drawsync/transport"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := loadConfig(getEnv("DRAWSYNC_CONFIG", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.applyEnv()

	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil {
		log.Warn().Str("level", config.Log.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialer, err := transport.NewDialer(config.transportConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create dialer")
	}

	store := tokenStore(config)
	metrics := conn.NewCounterMetrics()

	opts := []session.Option{session.WithMetrics(metrics)}
	if config.Room.LookupURL != "" {
		token := lookupToken(ctx, store)
		opts = append(opts, session.WithRoomLookup(rooms.NewClient(config.Room.LookupURL, token)))
	}

	s, err := session.Open(ctx, config.sessionConfig(), dialer, store, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open game session")
	}

	s.Reducer.WatchPresentations(func(p game.Presentation) error {
		event := log.Info().Str("kind", string(p.Kind)).Int("round", p.Round)
		for _, standing := range p.Standings {
			event = event.Int(standing.Username, standing.Score)
		}
		event.Msg("summary")
		return nil
	})

	server := setupInspectServer(config.Inspect.Port, s, metrics)
	go func() {
		log.Info().Str("addr", server.Addr).Str("server_url", config.Server.URL).Msg("inspect server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("inspect server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("inspect server shutdown failed")
	}

	if err := s.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close game session")
	}

	log.Info().Msg("drawsync shutdown complete")
}

// lookupToken reads the token for the room lookup client. Failures are
// logged and the lookup proceeds anonymously.
func lookupToken(ctx context.Context, store credentials.Store) string {
	token, err := store.Token(ctx)
	if errors.Is(err, credentials.ErrNoToken) {
		log.Warn().Msg("no access token available for room lookup")
		return ""
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to load access token for room lookup")
		return ""
	}
	return token
}

// tokenStore checks the environment first, then the token file.
func tokenStore(config *Config) credentials.Store {
	stores := []credentials.Store{credentials.EnvStore{Key: config.Credentials.TokenEnv}}
	if config.Credentials.TokenFile != "" {
		stores = append(stores, credentials.FileStore{Path: config.Credentials.TokenFile})
	}
	return credentials.Chain(stores...)
}
