package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"duitbot/internal/bot"
	"duitbot/internal/budget"
	"duitbot/internal/cache"
	"duitbot/internal/config"
	"duitbot/internal/core"
	"duitbot/internal/events"
	"duitbot/internal/log"
	"duitbot/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting duitbot", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Event publishing is optional; without a broker the worker's pending
	// sweep still mirrors rows eventually.
	var publisher bot.Publisher
	var eventsClient *events.Client
	if cfg.MirrorEnabled() {
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = eventsClient
		logger.Info("Event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Event publishing disabled - no AMQP_URL provided")
	}

	telegram, err := bot.NewTelegram(cfg.BotToken, cfg.PollTimeoutSec, logger)
	if err != nil {
		logger.Error("Failed to initialize Telegram transport", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Telegram transport ready", "username", telegram.Username())

	evaluator := budget.NewEvaluator(repo, repo, logger)
	pending := cache.NewPending[core.Draft](cache.DefaultTTL)
	controller := bot.NewController(repo, evaluator, pending, publisher, telegram, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return telegram.Run(ctx, controller.Handle)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if n := pending.CleanExpired(); n > 0 {
					logger.Debug("Expired pending drafts removed", "count", n)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Bot stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
}
