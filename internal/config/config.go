package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Chat transport (bot API the core calls for outbound messages)
	ChatAPIBaseURL  string
	ChatBotToken    string
	LobbyChannelID  int64
	AdminChatIDs    []int64
	NotifyRateLimit int // seconds between messages per chat

	// Match settings
	EntryFees         []float64
	MatchTimeoutMin   int
	QueueExpiryMin    int
	RakePercent       int
	SessionTTLMinutes int

	// Wallet settings
	MinDepositAmount    float64
	MinWithdrawalAmount float64
	MaxAmount           float64
	WelcomeBonus        float64
	ReferralBonus       float64

	// Security
	JWTSecret       string
	AdminTokenHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/xefootball?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),

		// Chat transport
		ChatAPIBaseURL:  getEnv("CHAT_API_BASE_URL", ""),
		ChatBotToken:    getEnv("CHAT_BOT_TOKEN", ""),
		LobbyChannelID:  getEnvInt64("LOBBY_CHANNEL_ID", 0),
		AdminChatIDs:    getEnvInt64List("ADMIN_CHAT_IDS"),
		NotifyRateLimit: getEnvInt("NOTIFY_RATE_LIMIT_SECONDS", 1),

		// Match settings
		EntryFees:         getEnvFloatList("ENTRY_FEES", []float64{20, 50, 100}),
		MatchTimeoutMin:   getEnvInt("MATCH_TIMEOUT_MINUTES", 15),
		QueueExpiryMin:    getEnvInt("QUEUE_EXPIRY_MINUTES", 30),
		RakePercent:       getEnvInt("RAKE_PERCENT", 10),
		SessionTTLMinutes: getEnvInt("SESSION_TTL_MINUTES", 30),

		// Wallet settings
		MinDepositAmount:    getEnvFloat("MIN_DEPOSIT_AMOUNT", 50),
		MinWithdrawalAmount: getEnvFloat("MIN_WITHDRAWAL_AMOUNT", 100),
		MaxAmount:           getEnvFloat("MAX_AMOUNT", 1000000),
		WelcomeBonus:        getEnvFloat("WELCOME_BONUS", 10),
		ReferralBonus:       getEnvFloat("REFERRAL_BONUS", 5),

		// Security
		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		AdminTokenHours: getEnvInt("ADMIN_TOKEN_HOURS", 24),
	}
}

// IsAdminChat reports whether the chat id belongs to a configured admin.
func (c *Config) IsAdminChat(id int64) bool {
	for _, a := range c.AdminChatIDs {
		if a == id {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvInt64List(key string) []int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		if v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func getEnvFloatList(key string, defaultValue []float64) []float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
