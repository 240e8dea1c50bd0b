package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/app"
	"github.com/dvloznov/kitchen-ledger/internal/bot"
	"github.com/dvloznov/kitchen-ledger/internal/config"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
)

// The worker receives updates by long polling instead of the webhook. Telegram
// refuses getUpdates while a webhook is set, so run one or the other.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.NewWithLevel(cfg.Logger.Level)
	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	log.Info().Str("bot", a.BotAPI.Self.UserName).Msg("Starting polling worker")

	// Start consuming jobs
	if err := a.Queue.Start(ctx, a.Dispatcher.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		bot.Poll(pollCtx, a.BotAPI, a.Queue)
	}()

	log.Info().Msg("Worker started, waiting for updates...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	// Stop polling first so no new sessions start
	cancelPoll()
	<-pollDone

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Queue.SessionTimeout+30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := a.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker exited")
}
