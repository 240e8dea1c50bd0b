package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/config"
	"github.com/dvloznov/kitchen-ledger/internal/infra/postgres"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	"github.com/dvloznov/kitchen-ledger/internal/notionsync"
)

// sync-notion backfills the Notion mirror with transactions recorded while it
// was disabled or unreachable.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.Logger.Level)

	// Parse CLI flags
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format, exclusive (default: tomorrow)")
	notionToken := flag.String("notion-token", cfg.Notion.Token, "Notion API token (or NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.Notion.DatabaseID, "Notion database ID (or NOTION_DATABASE_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *startDateStr == "" {
		log.Fatal().Msg("Error: --start-date is required")
	}
	if *notionToken == "" || *notionDBID == "" {
		log.Fatal().Msg("Error: Notion token and database ID are required")
	}

	// Parse dates
	startDate, err := time.Parse("2006-01-02", *startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}

	endDate := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	if *endDateStr != "" {
		endDate, err = time.Parse("2006-01-02", *endDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
		}
	}

	// Validate date range
	if !endDate.After(startDate) {
		log.Fatal().
			Time("start_date", startDate).
			Time("end_date", endDate).
			Msg("Error: end-date must be after start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	mirror := notionsync.NewMirror(notionsync.NewNotionClient(*notionToken), *notionDBID)
	if err := mirror.CheckSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Notion database is not usable")
	}

	stats, err := notionsync.SyncTransactions(ctx, postgres.NewRepository(pool), mirror, startDate, endDate, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d transactions, %d mirrored, %d failed.\n", stats.Total, stats.Mirrored, stats.Failed)
}
