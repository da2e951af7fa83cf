package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldserve/backend/internal/config"
	"github.com/fieldserve/backend/internal/db"
	httpapi "github.com/fieldserve/backend/internal/http"
	"github.com/fieldserve/backend/internal/notify"
	"github.com/fieldserve/backend/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "fieldserve-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	collection := schedule.NewCollection(store, logger)
	roster := schedule.NewRosterCache(store, logger)
	notifications := notify.NewCenter(100)
	mutator := schedule.NewMutator(collection, store, notifications, logger)

	bootCtx, cancelBoot := context.WithTimeout(ctx, cfg.RequestTimeout)
	if err := collection.Refresh(bootCtx); err != nil {
		logger.Warn().Err(err).Msg("initial collection load failed, serving empty snapshot")
	}
	if err := roster.Refresh(bootCtx); err != nil {
		logger.Warn().Err(err).Msg("initial roster load failed, filtering degrades to show-all")
	}
	cancelBoot()

	poller := cron.New()
	poller.Schedule(cron.Every(cfg.RefreshInterval), cron.FuncJob(func() {
		refreshCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		if err := collection.Refresh(refreshCtx); err != nil {
			logger.Warn().Err(err).Msg("scheduled collection refresh failed")
		}
		if err := roster.Refresh(refreshCtx); err != nil {
			logger.Warn().Err(err).Msg("scheduled roster refresh failed")
		}
	}))
	poller.Start()
	defer poller.Stop()

	router := httpapi.Router(cfg, store, collection, roster, mutator, notifications, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
