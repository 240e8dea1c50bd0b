package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/api"
	"github.com/dvloznov/kitchen-ledger/internal/app"
	"github.com/dvloznov/kitchen-ledger/internal/config"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	// Parse command-line flags
	var (
		port   = flag.String("port", cfg.Server.Port, "HTTP server port (or set SERVER_PORT env)")
		bucket = flag.String("bucket", cfg.Storage.Bucket, "GCS bucket for receipts (or set GCS_BUCKET env)")
	)
	flag.Parse()
	cfg.Storage.Bucket = *bucket

	log := logger.NewWithLevel(cfg.Logger.Level)
	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	// Start workers in background to process updates
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := a.Queue.Start(workerCtx, a.Dispatcher.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}
	log.Info().Int("workers", cfg.Queue.Workers).Msg("Job workers started")

	handler := api.NewRouter(api.Deps{
		Publisher:     a.Queue,
		JobStore:      a.JobStore,
		Receipts:      a.Repository,
		Signer:        a.Signer,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		APIToken:      cfg.Dashboard.APIToken,
		Logger:        log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown: stop accepting updates first, then drain sessions
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.SessionTimeout+30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight sessions
	if err := a.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
