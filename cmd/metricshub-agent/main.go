package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"codeberg.org/mutker/metricshub/internal/collector"
	"codeberg.org/mutker/metricshub/internal/config"
	"codeberg.org/mutker/metricshub/internal/logger"
	"codeberg.org/mutker/metricshub/internal/sampler"
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

	if cfg.Agent.MetricsURL == "" && cfg.Agent.StockURL == "" {
		logger.Fatal().Msg("no ingest URLs configured; nothing to collect")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Agent.MetricsURL != "" {
		loop, err := collector.New(collector.Config{
			Name:      "system",
			IngestURL: cfg.Agent.MetricsURL,
			StatusURL: cfg.Agent.SystemStatus(),
			Interval:  time.Duration(cfg.Agent.Interval) * time.Second,
		}, sampler.NewSystemSampler(cfg.Agent.GroupKey))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize system collector")
		}
		g.Go(func() error { return loop.Run(ctx) })
	}

	if cfg.Agent.StockURL != "" && len(cfg.Agent.Symbols) > 0 {
		source := sampler.NewStockSampler(
			cfg.Agent.QuoteURL,
			cfg.Agent.QuoteAPIKey,
			cfg.Agent.Symbols,
			time.Duration(cfg.Agent.QuoteDelayMS)*time.Millisecond,
		)
		loop, err := collector.New(collector.Config{
			Name:      "stock",
			IngestURL: cfg.Agent.StockURL,
			StatusURL: cfg.Agent.StockStatus(),
			Interval:  time.Duration(cfg.Agent.StockInterval) * time.Second,
		}, source)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize stock collector")
		}
		g.Go(func() error { return loop.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("collector exited with error")
	}

	logger.Info().Msg("Exiting...")
}
