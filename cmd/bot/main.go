package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"skhpc/internal/app"
	"skhpc/internal/bot"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, logCloser, err := app.Load()
	if err != nil {
		return err
	}

	if !cfg.Telegram.Enabled {
		return fmt.Errorf("telegram is disabled in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger, logCloser)
	if err != nil {
		return err
	}
	defer application.Close()

	application.StartWorkers(ctx)

	b, err := bot.NewBot(cfg.Telegram.BotToken, cfg.Telegram.Debug, application.Chat, logger)
	if err != nil {
		return err
	}

	b.Start(ctx)
	return nil
}
