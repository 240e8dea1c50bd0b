package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
)

// TransactionSource lists persisted transactions for a backfill.
type TransactionSource interface {
	ListTransactionsCreatedBetween(ctx context.Context, kind domain.Direction, start, end time.Time) ([]domain.Transaction, error)
}

// SyncStats counts the outcome of a backfill.
type SyncStats struct {
	Total    int
	Mirrored int
	Failed   int
}

// SyncTransactions mirrors every expense and income created in [start, end).
// Pages that already exist are left alone, so the backfill can be rerun. A
// failed page is logged and skipped.
func SyncTransactions(ctx context.Context, source TransactionSource, mirror *Mirror, start, end time.Time, dryRun bool) (SyncStats, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Time("start_date", start).
		Time("end_date", end).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	var stats SyncStats
	for _, kind := range []domain.Direction{domain.DirectionExpense, domain.DirectionIncome} {
		txs, err := source.ListTransactionsCreatedBetween(ctx, kind, start, end)
		if err != nil {
			return stats, fmt.Errorf("SyncTransactions: listing %s records: %w", kind, err)
		}
		log.Info().Str("kind", string(kind)).Int("count", len(txs)).Msg("Retrieved transactions")

		for _, tx := range txs {
			stats.Total++
			if dryRun {
				log.Info().
					Str("transaction_id", tx.Base().ID).
					Str("party", tx.Counterparty()).
					Msg("[DRY RUN] Would mirror transaction")
				continue
			}
			if err := mirror.MirrorTransaction(ctx, tx); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.Base().ID).Msg("Failed to mirror transaction")
				stats.Failed++
				continue
			}
			stats.Mirrored++
		}
	}

	log.Info().
		Int("total", stats.Total).
		Int("mirrored", stats.Mirrored).
		Int("failed", stats.Failed).
		Msg("Transaction sync completed")

	return stats, nil
}
