package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quizpal/quizpal/internal/config"
	"github.com/quizpal/quizpal/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "quizpal",
	Short: "Telegram bot that turns English notes into quizzes",
	Long: "QuizPal is a Telegram bot that turns the English words and phrases you send into quiz polls, " +
		"with a daily puzzle for subscribers.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DATABASE_NAME)")
	rootCmd.PersistentFlags().String("puzzles", "", "Path to the daily puzzle file (overrides PUZZLE_FILE)")
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "Path to a .env file to load first")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies flag overrides. It does not
// validate; commands check what they need.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Database = p
	}
	if p, _ := cmd.Flags().GetString("puzzles"); p != "" {
		cfg.PuzzleFile = p
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}
