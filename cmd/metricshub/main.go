package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/metricshub/internal/config"
	"codeberg.org/mutker/metricshub/internal/logger"
	"codeberg.org/mutker/metricshub/internal/server"
	"codeberg.org/mutker/metricshub/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")

	repo, err := store.New(store.Config{DBPath: cfg.Server.Database})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics store")
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(repo)
	if err := srv.ListenAndServe(ctx, cfg.Server.Listen); err != nil {
		logger.Error().Err(err).Msg("error in HTTP server")
	}

	logger.Info().Msg("Exiting...")
}
