package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatlink/internal/bot"
	"chatlink/internal/config"
	"chatlink/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.InternalAPIKey == "" {
		return fmt.Errorf("INTERNAL_API_KEY is required")
	}

	client := bot.NewClient(cfg.APIBaseURL, cfg.InternalAPIKey)
	b, err := bot.New(cfg.TelegramBotToken, client, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Bot polling for updates, backend at %s", cfg.APIBaseURL)
	return b.Run(ctx)
}
