package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "DATABASE_URL", "STORAGE_DRIVER", "SNAPSHOT_PATH",
	"HTTP_ADDR", "REPORT_INTERVAL_HOURS", "REMINDER_TIME", "SEED_CATEGORIES", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "streak_keeper.db", cfg.DatabaseURL)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "streak_data.json", cfg.SnapshotPath)
	assert.Equal(t, "21:00", cfg.ReminderTime)
	assert.Equal(t, DefaultSeed, cfg.SeedCategories)
	assert.Zero(t, cfg.ReportInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.BotEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", " token ")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("STORAGE_DRIVER", "JSON")
	t.Setenv("REPORT_INTERVAL_HOURS", "6")
	t.Setenv("REMINDER_TIME", "")
	t.Setenv("SEED_CATEGORIES", " Йога, ,Код ")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.Equal(t, int64(12345), cfg.TelegramChatID)
	assert.Equal(t, DriverJSON, cfg.StorageDriver)
	assert.Equal(t, 6*time.Hour, cfg.ReportInterval)
	assert.Empty(t, cfg.ReminderTime)
	assert.Equal(t, []string{"Йога", "Код"}, cfg.SeedCategories)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.BotEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("REMINDER_TIME", "25:00")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("TELEGRAM_CHAT_ID", "me")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "7", "07:60", "aa:10", "1:2:3"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseInterval(t *testing.T) {
	assert.Equal(t, 5*time.Hour, parseInterval("5"))
	assert.Zero(t, parseInterval("-1"))
	assert.Zero(t, parseInterval("abc"))
	assert.Zero(t, parseInterval(""))
}
