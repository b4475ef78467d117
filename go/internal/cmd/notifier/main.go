package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtline/go/internal/config"
	"github.com/mcdev12/courtline/go/internal/notifications/bus"
	"github.com/mcdev12/courtline/go/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := setupStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up outbox store")
	}
	defer closeStore()

	nc, js, err := bus.Connect(ctx, cfg.NATS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	services, err := setupServices(cfg, repo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}

	health := server.NewHealthChecker(services.Outbox, nc, server.DefaultPendingThreshold)
	srv := server.New(cfg.HTTP, health, services.Outbox)
	consumer := bus.NewConsumer(js, cfg.NATS, services.Triggers)

	errCh := make(chan error, 1)
	consumerDone := make(chan struct{})

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("operator server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		log.Error().Err(err).Msg("notifier stopped unexpectedly")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down operator server")
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("consumer did not stop before shutdown timeout")
	}
	log.Info().Msg("notifier stopped")
}

func setupLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("log_level", level).Msg("invalid log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
