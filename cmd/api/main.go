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

	"sigmine-dashboard/internal/api"
	"sigmine-dashboard/internal/charts"
	"sigmine-dashboard/internal/config"
	"sigmine-dashboard/internal/dashboard"
	"sigmine-dashboard/internal/dataset"
	"sigmine-dashboard/internal/groups"
	"sigmine-dashboard/internal/logger"
	"sigmine-dashboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	log := logger.NewWithOptions(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.WithField("service", "sigmine-dashboard").Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := groups.LoadFile(cfg.GroupsPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.WithField("groups_path", cfg.GroupsPath).Warn("group table not found, using raw company names")
		table = groups.Identity
	case err != nil:
		log.WithError(err).Fatal("failed to load group table")
	default:
		log.WithField("companies", table.Len()).Info("group table loaded")
	}

	var src store.Source
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		defer pg.Close()
		src = pg
		log.Info("reading records from postgres")
	} else {
		src = dataset.File{Path: cfg.DatasetPath}
		log.WithField("dataset_path", cfg.DatasetPath).Info("reading records from spreadsheet")
	}
	cache := store.NewCache(src, cfg.CacheTTL, cfg.FetchMaxElapsed, log)

	builder := dashboard.NewBuilder(cache, table, !cfg.StrictCategories, log)
	server := api.NewServer(builder, log, api.Options{
		Charts: charts.Options{AssetsHost: cfg.AssetsHost},
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}
