package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string
	Environment string
	Timezone    string

	// Настройки outbox-очереди уведомлений
	NotificationsEnabled bool
	ImmediateDispatch    bool
	PollInterval         time.Duration
	BatchSize            int
	MaxAttempts          int
	DefaultExpiry        time.Duration
	DefaultPriority      int

	// Email-провайдер
	ResendAPIKey string
	ResendFrom   string
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:                os.Getenv("DB_DSN"),
		Environment:          getEnv("ENV", "development"),
		Timezone:             getEnv("APP_TIMEZONE", "UTC"),
		NotificationsEnabled: getEnvBool("NOTIFICATIONS_ENABLED", true),
		ImmediateDispatch:    getEnvBool("NOTIFICATIONS_IMMEDIATE", false),
		PollInterval:         getEnvDuration("NOTIFICATIONS_POLL_INTERVAL", 30*time.Second),
		BatchSize:            getEnvInt("NOTIFICATIONS_BATCH_SIZE", 10),
		MaxAttempts:          getEnvInt("NOTIFICATIONS_MAX_ATTEMPTS", 3),
		DefaultExpiry:        getEnvDuration("NOTIFICATIONS_DEFAULT_EXPIRY", 24*time.Hour),
		DefaultPriority:      getEnvInt("NOTIFICATIONS_DEFAULT_PRIORITY", 0),
		ResendAPIKey:         os.Getenv("RESEND_API_KEY"),
		ResendFrom:           os.Getenv("RESEND_FROM"),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("NOTIFICATIONS_BATCH_SIZE must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("NOTIFICATIONS_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid bool for %s, using default", key)
		return def
	}
	return parsed
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid int for %s, using default", key)
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid duration for %s, using default", key)
		return def
	}
	return parsed
}
