package bot

import (
	"context"

	"github.com/dvloznov/kitchen-ledger/internal/jobs"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource is the long-polling part of *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poll feeds long-polled updates into the job queue until ctx is done. It is
// the alternative to the webhook endpoint; both publish the same jobs.
func Poll(ctx context.Context, source UpdateSource, publisher jobs.Publisher) {
	log := logger.FromContext(ctx)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := source.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			source.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			job := jobs.NewIngestUpdateJob(update, "polling")
			if err := publisher.PublishIngestUpdate(ctx, job); err != nil {
				log.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to enqueue update")
				continue
			}
			log.Debug().Str("job_id", job.JobID).Int("update_id", update.UpdateID).Msg("Update enqueued")
		}
	}
}
