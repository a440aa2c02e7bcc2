package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lunabot/luna/internal/agent"
	"github.com/lunabot/luna/internal/ai"
	"github.com/lunabot/luna/internal/bot"
	"github.com/lunabot/luna/internal/bot/handlers"
	"github.com/lunabot/luna/internal/config"
	"github.com/lunabot/luna/internal/database"
	"github.com/lunabot/luna/internal/directory"
	"github.com/lunabot/luna/internal/mcpclient"
	"github.com/lunabot/luna/internal/repository"
	"github.com/lunabot/luna/internal/scheduler"
	"github.com/lunabot/luna/internal/timer"
	"github.com/lunabot/luna/internal/tools"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate required config
	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}
	if cfg.AIAPIKey == "" {
		log.Fatal("AI_API_KEY is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Launch MCP tool providers
	calendar, err := mcpclient.New(ctx, "calendar", cfg.MCPCalendarCommand)
	if err != nil {
		log.Fatalf("Failed to start calendar provider: %v", err)
	}
	defer calendar.Close()

	contacts, err := mcpclient.NewContacts(ctx, cfg.MCPContactsCommand)
	if err != nil {
		log.Fatalf("Failed to start contacts provider: %v", err)
	}
	defer contacts.Close()
	log.Println("MCP tool providers started")

	// Initialize AI client
	aiClient := ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	log.Printf("AI client initialized (model: %s)", cfg.AIModel)

	// Create Telegram API client
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to create Telegram API: %v", err)
	}

	// Repositories
	reminderRepo := repository.NewReminderRepository(db)
	contactRepo := repository.NewContactRepository(db)
	conversationRepo := repository.NewConversationRepository(db)

	// Contact directory and fact workflow
	dir := directory.New(contacts, contactRepo, cfg.Timezone)
	facts := agent.NewWorkflow(dir)

	// Reminder timer manager: rebuild timers for everything unsent,
	// past-due reminders fire immediately
	transport := bot.NewReminderTransport(api, cfg.UserChatID)
	timers := timer.New(reminderRepo, transport)
	if err := timers.RestoreAll(ctx); err != nil {
		log.Fatalf("Failed to restore reminder timers: %v", err)
	}

	// Orchestration loop
	executor := tools.NewExecutor(calendar, reminderRepo, timers, cfg.Timezone)
	loop := agent.NewLoop(aiClient, executor, conversationRepo, facts, cfg.Timezone)

	// Daily summary scheduler
	sched := scheduler.New(api, calendar, aiClient, dir,
		cfg.UserChatID, cfg.DailySummaryHour, cfg.DailySummaryMinute, cfg.Timezone)
	go sched.Start(ctx)

	// Create bot
	h := handlers.New(api, loop, facts, dir, reminderRepo, conversationRepo, calendar, cfg.Timezone)
	b, err := bot.New(api, h, cfg.AllowedUserIDs)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	log.Println("Luna is running...")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
}
