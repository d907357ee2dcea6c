package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"duitbot/internal/config"
	"duitbot/internal/events"
	"duitbot/internal/log"
	"duitbot/internal/sheets"
	"duitbot/internal/storage"
	"duitbot/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.DefaultConfig().Level,
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting duitbot-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if !cfg.MirrorEnabled() {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}
	if cfg.SpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the mirror worker")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sheetsClient, err := sheets.New(ctx, cfg.SpreadsheetID, cfg.SheetName, cfg.CredentialsFile, cfg.CredentialsJSON)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)

	eventsClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer eventsClient.Close()

	mirror := worker.NewMirrorWorker(repo, sheetsClient, cfg.MirrorBatchSize)

	// Catch up on rows missed while the worker was down.
	if err := mirror.StartupCheck(ctx); err != nil {
		logger.Error("Startup mirror sweep failed", log.FieldError, err)
		// Keep running; the periodic sweep retries.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eventsClient.ConsumeTransactionSaved(ctx, func(evt *events.TransactionSavedEvent) error {
			return mirror.HandleEvent(ctx, evt)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.MirrorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := mirror.ProcessPending(ctx); err != nil {
					logger.Error("Periodic mirror sweep failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
}
