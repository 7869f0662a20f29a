// Package config loads QuizPal's runtime configuration from the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quizpal/quizpal/internal/daily"
	"github.com/quizpal/quizpal/internal/llm"
	"github.com/quizpal/quizpal/internal/messaging"
)

// Defaults for optional settings.
const (
	DefaultDatabase    = "quizpal_default.db"
	DefaultPuzzleFile  = "puzzles.json"
	DefaultLogMode     = "prod"
	DefaultLogLevel    = "info"
	DefaultEnvFile     = ".env"
	DefaultConcurrency = 4
)

// Config is everything the bot needs at startup.
type Config struct {
	TelegramToken string
	// TelegramEndpoint overrides the Bot API URL format, mostly for tests.
	TelegramEndpoint string

	// Channel receives anonymous copies of every poll. Nil disables it.
	Channel *messaging.ChatRef

	Database   string
	PuzzleFile string

	DailyTime     string
	DailyLocation *time.Location
	DailyPuzzles  int
	DailyWorkers  int

	LogMode  string
	LogLevel string
	LogFile  string // copy of every log line; empty for none

	LLM llm.Config
}

// Load reads envFile (missing is fine) and then the process environment.
// Values already in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only. Malformed
// optional values are an error; missing required ones are left for
// Validate.
func FromEnv() (Config, error) {
	cfg := Config{
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramEndpoint: os.Getenv("TELEGRAM_API_ENDPOINT"),
		Database:         envOr("DATABASE_NAME", DefaultDatabase),
		PuzzleFile:       envOr("PUZZLE_FILE", DefaultPuzzleFile),
		DailyTime:        envOr("DAILY_PUZZLE_TIME", daily.DefaultTime),
		LogMode:          envOr("LOG_MODE", DefaultLogMode),
		LogLevel:         strings.ToLower(envOr("LOG_LEVEL", DefaultLogLevel)),
		LogFile:          strings.TrimSpace(os.Getenv("LOG_FILE")),
		LLM:              llm.ConfigFromEnv(),
	}

	if ch, ok := messaging.ParseChatRef(strings.TrimSpace(os.Getenv("CHANNEL_ID"))); ok {
		cfg.Channel = &ch
	}

	loc, err := time.LoadLocation(envOr("DAILY_PUZZLE_TZ", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("DAILY_PUZZLE_TZ: %w", err)
	}
	cfg.DailyLocation = loc

	if cfg.DailyPuzzles, err = envInt("DAILY_PUZZLES_PER_RUN", 1); err != nil {
		return Config{}, err
	}
	if cfg.DailyWorkers, err = envInt("DAILY_CONCURRENCY", DefaultConcurrency); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem that would stop the bot from running.
func (c Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := daily.ParseClock(c.DailyTime); err != nil {
		errs = append(errs, fmt.Errorf("DAILY_PUZZLE_TIME: %w", err))
	}
	if c.DailyPuzzles < 1 {
		errs = append(errs, fmt.Errorf("DAILY_PUZZLES_PER_RUN must be at least 1, got %d", c.DailyPuzzles))
	}
	if c.DailyWorkers < 1 {
		errs = append(errs, fmt.Errorf("DAILY_CONCURRENCY must be at least 1, got %d", c.DailyWorkers))
	}
	return errors.Join(errs...)
}

// DailyConfig returns the daily job settings.
func (c Config) DailyConfig() daily.Config {
	return daily.Config{PuzzlesPerRun: c.DailyPuzzles, Concurrency: c.DailyWorkers}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return n, nil
}
