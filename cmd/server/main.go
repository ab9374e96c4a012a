package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/movielens-api/internal/auth"
	"github.com/Clark-Hu/movielens-api/internal/catalog"
	"github.com/Clark-Hu/movielens-api/internal/config"
	httpserver "github.com/Clark-Hu/movielens-api/internal/http"
	"github.com/Clark-Hu/movielens-api/internal/logging"
	"github.com/Clark-Hu/movielens-api/internal/repository"
	"github.com/Clark-Hu/movielens-api/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		logging.Fatal().Err(err).Msg("env file error")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("config error")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logging.Logger()))
	if err != nil {
		logging.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	authMgr, err := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLSecs)*time.Second)
	if err != nil {
		logging.Fatal().Err(err).Msg("init auth")
	}

	repo := repository.New(st)
	server := httpserver.New(cfg, st, catalog.NewFromRepository(repo), authMgr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("graceful shutdown error")
	}
	logging.Info().Msg("server stopped")
}
