package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/kitchen-ledger/internal/api/handlers"
	"github.com/dvloznov/kitchen-ledger/internal/blobstore"
	"github.com/dvloznov/kitchen-ledger/internal/bot"
	"github.com/dvloznov/kitchen-ledger/internal/config"
	infraBQ "github.com/dvloznov/kitchen-ledger/internal/infra/bigquery"
	"github.com/dvloznov/kitchen-ledger/internal/infra/postgres"
	"github.com/dvloznov/kitchen-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/kitchen-ledger/internal/notionsync"
	"github.com/dvloznov/kitchen-ledger/internal/pipeline"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// App holds the long-lived clients of a bot process: the webhook server and the
// polling worker build the same graph and differ only in how updates arrive.
type App struct {
	Pool       *pgxpool.Pool
	Repository *postgres.Repository
	Signer     handlers.URLSigner // nil with the local store
	BotAPI     *tgbotapi.BotAPI
	Ingestor   *pipeline.Ingestor
	Dispatcher *bot.Dispatcher
	JobStore   *inmemory.Store
	Queue      *inmemory.Queue

	closers []func() error
}

// New connects every collaborator named by cfg. Optional sinks (BigQuery,
// Notion) are only wired when configured.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	a.Repository = postgres.NewRepository(pool)

	var store pipeline.BlobStore
	if cfg.Storage.Bucket != "" {
		gcs, err := blobstore.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.SignedURLTTL)
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, gcs.Close)
		store, a.Signer = gcs, gcs
		log.Info().Str("bucket", gcs.Bucket()).Msg("Storing receipts in GCS")
	} else {
		local, err := blobstore.NewLocalStore(cfg.Storage.ReceiptsFolder)
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
		store = local
		log.Warn().Str("folder", local.Root()).Msg("No GCS bucket configured, storing receipts on local disk")
	}

	extractor, err := pipeline.NewGeminiExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	log.Info().Str("model", extractor.Model()).Msg("Vision extractor ready")

	a.BotAPI, err = bot.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	transport := bot.NewTransport(a.BotAPI)

	opts := pipeline.Options{
		AllowedUsers:   cfg.Telegram.AllowedUsers,
		Extractor:      extractor,
		Store:          store,
		Gateway:        a.Repository,
		Transport:      transport,
		SessionTimeout: cfg.Queue.SessionTimeout,
		Logger:         log,
	}

	if cfg.BigQuery.Enabled() {
		archive, err := infraBQ.NewModelOutputRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, archive.Close)
		opts.Archive = archive
	}

	if cfg.Notion.Enabled() {
		mirror := notionsync.NewMirror(notionsync.NewNotionClient(cfg.Notion.Token), cfg.Notion.DatabaseID)
		if err := mirror.CheckSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Notion mirror may fail to write pages")
		}
		opts.Mirror = mirror
	}

	a.Ingestor = pipeline.NewIngestor(opts)
	a.Dispatcher = bot.NewDispatcher(a.Ingestor, transport, a.Repository, cfg.Telegram.AllowedUsers)

	a.JobStore = inmemory.NewStore()
	a.Queue = inmemory.NewQueue(cfg.Queue.Buffer, cfg.Queue.Workers, a.JobStore)

	ok = true
	return a, nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
