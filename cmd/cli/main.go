package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/blobstore"
	"github.com/dvloznov/kitchen-ledger/internal/config"
	infraBQ "github.com/dvloznov/kitchen-ledger/internal/infra/bigquery"
	"github.com/dvloznov/kitchen-ledger/internal/infra/postgres"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	"github.com/dvloznov/kitchen-ledger/internal/pipeline"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithLevel(cfg.Logger.Level)

	switch os.Args[1] {
	case "ingest":
		runIngest(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "inspect":
		runInspect(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Kitchen Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  ingest    Extract a receipt from a local image or PDF (add -persist to record it)")
	fmt.Println("  upload    Store a receipt file in the configured blob store")
	fmt.Println("  inspect   List archived model outputs from BigQuery")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runIngest(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a receipt image or PDF, or a gs://bucket/object URI")
	persist := fs.Bool("persist", false, "Store the receipt and record the transaction")
	telegramID := fs.Int64("telegram-id", 0, "Telegram user id to attribute the receipt to (falls back to the first admin)")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}
	if cfg.Gemini.APIKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Queue.SessionTimeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	data, err := readSource(ctx, cfg, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read receipt")
	}
	mimeType := blobstore.ContentTypeForExt(filepath.Ext(*filePath))

	extractor, err := pipeline.NewGeminiExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extractor")
	}

	if !*persist {
		extraction, err := extractor.Extract(ctx, data, mimeType)
		if err != nil {
			log.Fatal().Err(err).Msg("Extraction failed")
		}
		if !pipeline.IsReadable(extraction.Receipt) {
			log.Fatal().Msg("Receipt is unreadable")
		}
		route := pipeline.Classify(pipeline.Normalize(extraction.Receipt))
		fmt.Println("Dry run, nothing was recorded. The bot would reply:")
		fmt.Println()
		fmt.Println(pipeline.ConfirmationMessage(&preview{route: route}))
		return
	}

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	ingestor := pipeline.NewIngestor(pipeline.Options{
		Extractor:      extractor,
		Store:          store,
		Gateway:        postgres.NewRepository(pool),
		Transport:      &fileTransport{data: data},
		SessionTimeout: cfg.Queue.SessionTimeout,
		Logger:         log,
	})

	result, err := ingestor.Ingest(ctx, pipeline.Submission{
		SenderID: *telegramID,
		Attachment: pipeline.Attachment{
			FileID:   *filePath,
			MIMEType: mimeType,
			FileName: filepath.Base(*filePath),
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("\nRecorded %s %s (job %s)\n", result.Transaction.Kind(), result.Transaction.Base().ID, result.JobID)
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to local receipt file")
	bucket := fs.String("bucket", cfg.Storage.Bucket, "GCS bucket name (empty stores under RECEIPTS_FOLDER)")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -file PATH [-bucket NAME]")
	}
	cfg.Storage.Bucket = *bucket

	ctx := logger.WithContext(context.Background(), log)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	ext := strings.TrimPrefix(filepath.Ext(*filePath), ".")
	obj, err := store.Store(ctx, data, blobstore.NewObjectName(time.Now(), ext), blobstore.ContentTypeForExt(ext))
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Stored %s\n  url:        %s\n  storage id: %s\n", *filePath, obj.URL, obj.StorageID)
}

func runInspect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	project := fs.String("project", cfg.BigQuery.Project, "GCP project ID")
	dataset := fs.String("dataset", cfg.BigQuery.Dataset, "BigQuery dataset ID")
	limit := fs.Int("limit", 10, "Number of outputs to show")
	showRaw := fs.Bool("raw", false, "Print the raw model text")
	fs.Parse(os.Args[2:])

	if *project == "" {
		log.Fatal().Msg("Error: -project or BIGQUERY_PROJECT is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	repo, err := infraBQ.NewModelOutputRepository(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	rows, err := repo.ListModelOutputs(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list model outputs")
	}

	fmt.Printf("\n=== Model outputs (%d) ===\n", len(rows))
	for i, row := range rows {
		fmt.Printf("\n%d. %s\n", i+1, row.OutputID)
		fmt.Printf("   Created:     %s\n", row.CreatedTS.Format(time.RFC3339))
		fmt.Printf("   Job:         %s (chat %d)\n", row.JobID, row.ChatID)
		fmt.Printf("   Model:       %s\n", row.ModelName)
		if row.Direction.Valid {
			fmt.Printf("   Direction:   %s\n", row.Direction.StringVal)
		}
		if row.TransactionID.Valid {
			fmt.Printf("   Transaction: %s\n", row.TransactionID.StringVal)
		}
		if row.RawJSON.Valid {
			fmt.Printf("   Fields:      %s\n", compactJSON(row.RawJSON.JSONVal))
		}
		if *showRaw && row.RawText.Valid {
			fmt.Printf("   Raw text:\n%s\n", row.RawText.StringVal)
		}
	}
	fmt.Println()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (pipeline.BlobStore, func()) {
	if cfg.Storage.Bucket != "" {
		gcs, err := blobstore.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.SignedURLTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS store")
		}
		return gcs, func() { gcs.Close() }
	}
	local, err := blobstore.NewLocalStore(cfg.Storage.ReceiptsFolder)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create local store")
	}
	return local, func() {}
}

// readSource loads a receipt from local disk or, for gs:// URIs, from GCS.
func readSource(ctx context.Context, cfg *config.Config, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "gs://") {
		return os.ReadFile(source)
	}

	bucket, object, err := blobstore.ParseGCSURI(source)
	if err != nil {
		return nil, fmt.Errorf("readSource: %w", err)
	}
	gcs, err := blobstore.NewGCSStore(ctx, bucket, cfg.Storage.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("readSource: %w", err)
	}
	defer gcs.Close()

	return gcs.Fetch(ctx, object)
}

func compactJSON(s string) string {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return s
	}
	return string(b)
}
