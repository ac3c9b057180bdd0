package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lavrd/wattle-files-tg/internal/bot"
	"github.com/lavrd/wattle-files-tg/internal/config"
	"github.com/lavrd/wattle-files-tg/internal/metrics"
	"github.com/lavrd/wattle-files-tg/internal/repo"
	"github.com/lavrd/wattle-files-tg/internal/server"
	"github.com/lavrd/wattle-files-tg/internal/session"
	"github.com/lavrd/wattle-files-tg/internal/task"
	"github.com/lavrd/wattle-files-tg/internal/telegram"
	"github.com/lavrd/wattle-files-tg/internal/upload"
)

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenDBAndMigrate(cfg.DatabaseFilepath, repo.ModeRWC)
	if err != nil {
		return fmt.Errorf("failed to open database and do migrations: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database connection")
		}
	}()
	repository := repo.New(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	gateway, err := telegram.New(cfg, m)
	if err != nil {
		return err
	}
	if err = gateway.SetWebhook(cfg.WebHookURL); err != nil {
		return err
	}

	sessions := session.New(repository, m, cfg.DefaultSemester)
	uploads := upload.New(repository, gateway, m, cfg.AdminID, cfg.DedupTTL)
	b := bot.New(gateway, repository, sessions, uploads, m, cfg.AdminID)

	pool := task.RunWorkers(cfg.Workers, cfg.HandlerTimeout)
	srv := server.New(cfg, b, pool, repository, registry)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-ctx.Done()
		log.Debug().Msg("handle SIGINT, SIGQUIT, SIGTERM")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HandlerTimeout)
		defer cancel()
		// Stop receiving updates first, then wait for handlers in progress.
		err := srv.Shutdown(shutdownCtx)
		pool.Close()
		return err
	})
	log.Info().Msg("bot has started and waiting for updates")
	if err = g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("bot has been stopped")
	return nil
}
