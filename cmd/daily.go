package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quizpal/quizpal/internal/daily"
	"github.com/quizpal/quizpal/internal/messaging"
	"github.com/quizpal/quizpal/internal/puzzle"
	"github.com/quizpal/quizpal/internal/store"
	"github.com/quizpal/quizpal/internal/telegram"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Inspect or trigger the daily puzzle",
}

var dailyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queued puzzles, subscribers and the next scheduled run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		queue := puzzle.NewQueue(cfg.PuzzleFile, nil)
		fmt.Printf("Puzzle file:   %s\n", queue.Path())
		fmt.Printf("Queued:        %d\n", queue.Len(ctx))

		st, err := store.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		users, err := st.UserRepo().ListDailyPuzzle(ctx)
		if err != nil {
			return fmt.Errorf("list subscribers: %w", err)
		}
		fmt.Printf("Subscribers:   %d\n", len(users))

		hour, minute, err := daily.ParseClock(cfg.DailyTime)
		if err != nil {
			return err
		}
		fmt.Printf("Next run:      %s\n", nextAt(time.Now().In(cfg.DailyLocation), hour, minute).Format("2006-01-02 15:04 MST"))
		return nil
	},
}

var dailyRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the daily puzzle now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.TelegramToken == "" {
			return errors.New("TELEGRAM_TOKEN is required")
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		st, err := store.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		api, err := telegram.Dial(cfg.TelegramToken, cfg.TelegramEndpoint)
		if err != nil {
			return err
		}
		sender := telegram.NewClient(api)
		dispatcher := messaging.NewDispatcher(sender, cfg.Channel, log)
		job := daily.NewJob(puzzle.NewQueue(cfg.PuzzleFile, log), st.UserRepo(), dispatcher, sender, cfg.DailyConfig(), log)

		rep := job.Run(cmd.Context())
		printReport(rep)
		return nil
	},
}

func printReport(rep daily.Report) {
	fmt.Printf("Run:         %s\n", rep.RunID)
	if rep.Skipped != "" {
		fmt.Printf("Skipped:     %s\n", rep.Skipped)
	}
	fmt.Printf("Puzzles:     %d\n", rep.Puzzles)
	fmt.Printf("Recipients:  %d (%d delivered, %d failed)\n", rep.Recipients, rep.Delivered, rep.Failed)
	fmt.Printf("Channel:     %v\n", rep.Broadcast)
	fmt.Printf("Took:        %s\n", rep.Finished.Sub(rep.Started).Round(time.Millisecond))
}

// nextAt returns the next wall-clock hour:minute after now in now's zone.
func nextAt(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func init() {
	dailyCmd.AddCommand(dailyStatusCmd)
	dailyCmd.AddCommand(dailyRunCmd)
}
