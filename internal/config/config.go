package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Internal endpoints (bot/webhook callers)
	InternalAPIKey string

	// Base URL other processes use to reach the API server
	APIBaseURL string

	// Telegram
	TelegramBotToken    string
	TelegramBotUsername string

	// Verification protocol timing. These are the single source of truth
	// shared by the API server and the link agent.
	Verification VerificationConfig

	// Analytics
	Analytics AnalyticsConfig
}

// VerificationConfig groups the channel-verification timing constants.
type VerificationConfig struct {
	NonceTTL     time.Duration // server-side nonce lifetime
	PollInterval time.Duration // agent status-poll cadence
	ResumeBuffer time.Duration // how long a persisted pending state stays resumable
}

// AnalyticsConfig groups analytics engine tuning knobs.
type AnalyticsConfig struct {
	PageSize         int           // rows per paged event query
	IdleGap          time.Duration // session boundary threshold
	ReactivationDays int           // inactivity span before a user counts as reactivated
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "chatlink"),
		DBPassword: getEnv("DB_PASSWORD", "chatlink"),
		DBName:     getEnv("DB_NAME", "chatlink"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramBotUsername: getEnv("TELEGRAM_BOT_USERNAME", "chatlink_bot"),

		Verification: VerificationConfig{
			NonceTTL:     getEnvDuration("VERIFY_NONCE_TTL", 5*time.Minute),
			PollInterval: getEnvDuration("VERIFY_POLL_INTERVAL", 3*time.Second),
			ResumeBuffer: getEnvDuration("VERIFY_RESUME_BUFFER", 10*time.Minute),
		},

		Analytics: AnalyticsConfig{
			PageSize:         getEnvInt("ANALYTICS_PAGE_SIZE", 500),
			IdleGap:          getEnvDuration("ANALYTICS_IDLE_GAP", 30*time.Minute),
			ReactivationDays: getEnvInt("ANALYTICS_REACTIVATION_DAYS", 14),
		},
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, value, defaultValue)
		return defaultValue
	}
	return dur
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}
