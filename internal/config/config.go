package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken    string
	DatabaseURL      string
	RedisURL         string
	BaseURL          string // Externally reachable URL, used for the webhook and the join page
	Port             string
	AdminID          int64
	SupportChannels  []string // Channels a user must belong to, empty disables the gate
	LogLevel         string
	Debug            bool
	RateLimitRPS     float64 // Rate limit for public pages (requests per second per IP)
	RateLimitBurst   int
	BroadcastRate    float64 // Broadcast messages per second
	BroadcastWorkers int     // Concurrent broadcast sends, 1 is strictly sequential
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		TelegramToken:    getEnv("TELEGRAM_TOKEN", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		BaseURL:          strings.TrimRight(getEnv("BASE_URL", getEnv("RENDER_EXTERNAL_URL", "")), "/"),
		Port:             getEnv("PORT", "8080"),
		AdminID:          getEnvInt64("ADMIN_ID", 0),
		SupportChannels:  ParseChannels(getEnv("SUPPORT_CHANNELS", "")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Debug:            getEnvBool("APP_DEBUG", false),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 10),
		BroadcastRate:    getEnvFloat("BROADCAST_RATE", 20), // one message every 50ms
		BroadcastWorkers: getEnvInt("BROADCAST_WORKERS", 1),
	}
}

// Validate reports configuration the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.BroadcastRate <= 0 {
		errs = append(errs, errors.New("BROADCAST_RATE must be positive"))
	}
	if c.BroadcastWorkers < 1 {
		errs = append(errs, errors.New("BROADCAST_WORKERS must be at least 1"))
	}
	return errors.Join(errs...)
}

// ParseChannels splits a comma-separated channel list, trimming entries and dropping empty ones.
func ParseChannels(raw string) []string {
	var channels []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			channels = append(channels, c)
		}
	}
	return channels
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
