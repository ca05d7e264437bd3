// mockserver is the development backend for the interview widget: the public
// session contract plus the admin API, backed by SQLite.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nmikhaylov/go-interview-widget/internal/config"
	"github.com/nmikhaylov/go-interview-widget/internal/mockserver"
	"github.com/nmikhaylov/go-interview-widget/internal/observability"
	"github.com/nmikhaylov/go-interview-widget/internal/sysutil"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	logger := sysutil.NewLogger(cfg.LogLevel, cfg.LogPretty)
	log.Logger = logger

	shutdownOTel, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	store, err := mockserver.Open(cfg.Mock.DBPath, mockserver.Options{
		IdempotencyTTL: cfg.Mock.IdempotencyTTL,
		StageDelay:     cfg.Mock.StageDelay,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("db_path", cfg.Mock.DBPath).Msg("store open failed")
	}

	router := mockserver.NewRouter(store, cfg.Mock, cfg.OTEL.ServiceName)
	srv := &http.Server{
		Addr:              ":" + cfg.Mock.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("mock server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown failed")
	}
	logger.Info().Msg("bye")
}
