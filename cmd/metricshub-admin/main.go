// metricshub-admin bundles one-shot maintenance commands for the metrics
// database: check, cleanup and clear-stocks.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"codeberg.org/mutker/metricshub/internal/logger"
	"codeberg.org/mutker/metricshub/internal/store"
)

func main() {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	dbPath := flags.String("database", "/var/lib/metricshub/metricshub.db", "Path to the metrics database")
	days := flags.Int("days", 7, "Days of history to keep (cleanup)")
	logLevel := flags.String("log-level", "info", "Log level")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(*logLevel, false); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if flags.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	repo, err := store.New(store.Config{DBPath: *dbPath})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open metrics store")
	}
	defer repo.Close()

	ctx := context.Background()

	switch flags.Arg(0) {
	case "check":
		check(ctx, repo)
	case "cleanup":
		cleanup(ctx, repo, *days)
	case "clear-stocks":
		clearStocks(ctx, repo)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage: metricshub-admin [--database PATH] [--days N] check|cleanup|clear-stocks")
}

func check(ctx context.Context, repo store.Repository) {
	counts, err := repo.Counts(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to count records")
	}

	logger.Info().
		Int64("system_metrics", counts.System).
		Int64("stock_metrics", counts.Stock).
		Msg("Record counts")

	if rec, err := repo.LatestSystem(ctx); err == nil && rec != nil {
		logger.Info().
			Str("group_key", rec.GroupKey).
			Str("recorded_at", rec.RecordedAt).
			Msg("Latest system record")
	}

	stocks, err := repo.LatestStocks(ctx)
	if err != nil {
		return
	}
	for _, rec := range stocks {
		logger.Info().
			Str("symbol", rec.Symbol).
			Str("recorded_at", rec.RecordedAt).
			Msg("Latest stock record")
	}
}

func cleanup(ctx context.Context, repo store.Repository, days int) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(store.TimeLayout)

	deleted, err := repo.PruneBefore(ctx, cutoff)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prune records")
	}

	logger.Info().
		Int64("system_deleted", deleted.System).
		Int64("stock_deleted", deleted.Stock).
		Int("days_kept", days).
		Msg("Cleanup completed")
}

func clearStocks(ctx context.Context, repo store.Repository) {
	deleted, err := repo.ClearStocks(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to clear stock data")
	}

	logger.Info().Int64("deleted", deleted).Msg("Cleared stock records")
}
