package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI   string
	TelegramToken string

	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	// AllowedUserIDs is the whitelist of Telegram user IDs the bot answers.
	// Empty list means nobody is authorized.
	AllowedUserIDs []int64

	// UserChatID is the chat that receives reminders and the daily summary.
	UserChatID int64

	DailySummaryHour   int
	DailySummaryMinute int

	Timezone *time.Location

	// Commands that launch the MCP tool providers over stdio,
	// e.g. "uv run mcp-google-calendar".
	MCPCalendarCommand string
	MCPContactsCommand string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	tz, err := time.LoadLocation(getEnvOrDefault("TIMEZONE", "Europe/Vienna"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURI:        os.Getenv("DATABASE_URI"),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		AIAPIKey:           os.Getenv("AI_API_KEY"),
		AIBaseURL:          getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:            getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),
		AllowedUserIDs:     parseIDList(os.Getenv("ALLOWED_USER_IDS")),
		UserChatID:         parseInt64(os.Getenv("USER_CHAT_ID")),
		DailySummaryHour:   parseIntOrDefault(os.Getenv("DAILY_SUMMARY_HOUR"), 7),
		DailySummaryMinute: parseIntOrDefault(os.Getenv("DAILY_SUMMARY_MINUTE"), 0),
		Timezone:           tz,
		MCPCalendarCommand: os.Getenv("MCP_CALENDAR_COMMAND"),
		MCPContactsCommand: os.Getenv("MCP_CONTACTS_COMMAND"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIDList(value string) []int64 {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseInt64(value string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return n
}

func parseIntOrDefault(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}
