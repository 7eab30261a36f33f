package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"streak-keeper/internal/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Config keeps runtime settings for the tracker, bot and API.
type Config struct {
	TelegramToken  string
	TelegramChatID int64
	DatabaseURL    string
	StorageDriver  string
	SnapshotPath   string
	HTTPAddr       string
	ReportInterval time.Duration
	ReminderTime   string
	SeedCategories []string
	LogLevel       slog.Level
}

// DefaultSeed mirrors the categories a fresh install starts with.
var DefaultSeed = []string{"Учёба", "Спорт", "Чтение"}

// Load reads configuration from environment variables (and an optional .env file) with sane defaults.
func Load() (Config, error) {
	// A missing .env is fine; real environment variables win either way.
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		StorageDriver:  strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER"))),
		SnapshotPath:   strings.TrimSpace(os.Getenv("SNAPSHOT_PATH")),
		HTTPAddr:       strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		ReportInterval: parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS"))),
		LogLevel:       logger.ParseLevel(os.Getenv("LOG_LEVEL")),
	}

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID must be numeric: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "streak_keeper.db"
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverSQLite
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = "streak_data.json"
	}

	reminder, ok := os.LookupEnv("REMINDER_TIME")
	if ok {
		cfg.ReminderTime = strings.TrimSpace(reminder)
	} else {
		cfg.ReminderTime = "21:00"
	}

	seed, ok := os.LookupEnv("SEED_CATEGORIES")
	if ok {
		cfg.SeedCategories = splitList(seed)
	} else {
		cfg.SeedCategories = append([]string(nil), DefaultSeed...)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverJSON:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q, expected %s or %s", c.StorageDriver, DriverSQLite, DriverJSON)
	}
	if c.ReminderTime != "" {
		if _, _, err := ParseClock(c.ReminderTime); err != nil {
			return fmt.Errorf("REMINDER_TIME: %w", err)
		}
	}
	return nil
}

// BotEnabled reports whether a Telegram token is configured.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
