package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the backend.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	JWTSecret        string
	TelegramBotToken string
	LocalesPath      string

	MinSimilarity float64
	MaxKeywords   int
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", "chat.db"),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LocalesPath:      getEnv("LOCALES_PATH", "internal/localization/locales"),
		MinSimilarity:    getEnvFloat("MIN_SIMILARITY", DefaultMinSimilarity),
		MaxKeywords:      getEnvInt("MAX_KEYWORDS", DefaultMaxKeywords),
	}

	if cfg.Env == "production" && cfg.JWTSecret == "dev-secret-change-in-production" {
		panic("JWT_SECRET is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsePostgres reports whether a PostgreSQL DSN was configured.
// Without one the backend falls back to a local SQLite file.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v >= 0 && v <= 1 {
		return v
	}
	return defaultValue
}
