package database

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"

	"chatlink/internal/logger"
)

// Config holds the Postgres connection settings. DatabaseURL, when set,
// overrides the individual fields; managed hosting hands out a single URL.
type Config struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// NewConfig reads connection settings from the environment, loading .env
// first when present.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Debugw("no .env file, using environment", "error", err)
	}

	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", "chatlink"),
		Password:    getEnv("DB_PASSWORD", "chatlink"),
		DBName:      getEnv("DB_NAME", "chatlink"),
		SSLMode:     getEnv("DB_SSLMODE", "disable"),
	}, nil
}

// DSN returns the keyword/value connection string GORM's postgres driver
// expects.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the postgres:// form used by the migration runner.
func (c *Config) URL() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		c.Host, c.Port, c.DBName, c.SSLMode)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
