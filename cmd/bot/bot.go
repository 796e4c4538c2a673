package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/api"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/cli"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/config"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting water levels bot...")

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Get the bot token from environment variable
	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	app, err := cli.OpenApp(cfg.Database.Path, cfg.Database.PoolSize)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer app.Close()

	// Initialize Telegram bot
	telegramBot, err := api.NewTelegramBot(cfg.Telegram.Token, api.NewCommandHandler(app.Wells, app.Baros))
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start the bot
	telegramBot.Start(ctx)
}
