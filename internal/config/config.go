package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DatabaseURL string

	ClerkSecretKey     string
	ClerkWebhookSecret string

	MetricsUser string
	MetricsPass string

	FCMServiceAccountJSON string
	FCMCredentialsFile    string

	RateLimitRPS   float64
	RateLimitBurst int

	DefaultTimezone *time.Location

	LogLevel string
	LogFile  string
}

// Load reads .env files (if present) and the process environment.
func Load(files ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)

	cfg := &Config{
		Port:                  getEnv("PORT", "3333"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		ClerkSecretKey:        os.Getenv("CLERK_SECRET_KEY"),
		ClerkWebhookSecret:    os.Getenv("CLERK_WEBHOOK_SECRET"),
		MetricsUser:           os.Getenv("METRICS_USER"),
		MetricsPass:           os.Getenv("METRICS_PASS"),
		FCMServiceAccountJSON: os.Getenv("FCM_SERVICE_ACCOUNT_JSON"),
		FCMCredentialsFile:    getEnv("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFile:               os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "30")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	if cfg.DefaultTimezone, err = time.LoadLocation(getEnv("DEFAULT_TIMEZONE", "UTC")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE: %w", err)
	}

	if cfg.ClerkSecretKey == "" {
		return nil, fmt.Errorf("CLERK_SECRET_KEY environment variable is not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
