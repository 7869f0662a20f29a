package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizpal/quizpal/internal/messaging"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_TOKEN", "TELEGRAM_API_ENDPOINT", "CHANNEL_ID", "DATABASE_NAME", "PUZZLE_FILE",
		"DAILY_PUZZLE_TIME", "DAILY_PUZZLE_TZ", "DAILY_PUZZLES_PER_RUN", "DAILY_CONCURRENCY",
		"LOG_MODE", "LOG_LEVEL", "GOOGLE_AI_TOKEN", "QUIZPAL_GEMINI_API_KEY", "QUIZPAL_LLM_PROVIDER",
		"QUIZPAL_LLM_MAX_ATTEMPTS", "QUIZPAL_LLM_TIMEOUT", "LOG_FILE",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("GOOGLE_AI_TOKEN", "g-key")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, DefaultPuzzleFile, cfg.PuzzleFile)
	assert.Equal(t, "07:30", cfg.DailyTime)
	assert.Equal(t, 1, cfg.DailyPuzzles)
	assert.Equal(t, 4, cfg.DailyWorkers)
	assert.Nil(t, cfg.Channel, "missing channel degrades to no channel")
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, 1, cfg.LLM.Retry.MaxAttempts)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("GOOGLE_AI_TOKEN", "g-key")
	t.Setenv("CHANNEL_ID", "@quizpal_channel")
	t.Setenv("DATABASE_NAME", "/var/lib/quizpal/users.db")
	t.Setenv("DAILY_PUZZLE_TIME", "18:05")
	t.Setenv("DAILY_PUZZLE_TZ", "UTC")
	t.Setenv("DAILY_PUZZLES_PER_RUN", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FILE", " quizpal.log ")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Channel)
	assert.Equal(t, messaging.ChatRef{Username: "@quizpal_channel"}, *cfg.Channel)
	assert.Equal(t, "/var/lib/quizpal/users.db", cfg.Database)
	assert.Equal(t, "UTC", cfg.DailyLocation.String())
	assert.Equal(t, 3, cfg.DailyConfig().PuzzlesPerRun)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "quizpal.log", cfg.LogFile)
}

func TestFromEnv_BadValues(t *testing.T) {
	for key, val := range map[string]string{
		"DAILY_PUZZLE_TZ":       "Mars/Olympus",
		"DAILY_PUZZLES_PER_RUN": "many",
		"DAILY_CONCURRENCY":     "x",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAILY_PUZZLE_TIME", "25:00")
	t.Setenv("DAILY_CONCURRENCY", "0")

	cfg, err := FromEnv()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "TELEGRAM_TOKEN is required")
	assert.Contains(t, msg, "GOOGLE_AI_TOKEN")
	assert.Contains(t, msg, "DAILY_PUZZLE_TIME")
	assert.Contains(t, msg, "DAILY_CONCURRENCY")
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("TELEGRAM_TOKEN")
	os.Unsetenv("PUZZLE_FILE")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TELEGRAM_TOKEN=from-file\nPUZZLE_FILE=daily.json\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_TOKEN")
		os.Unsetenv("PUZZLE_FILE")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TelegramToken)
	assert.Equal(t, "daily.json", cfg.PuzzleFile)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestFromEnv_DiscoversProviderKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.Anthropic.APIKey)
}
