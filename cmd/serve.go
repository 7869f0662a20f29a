package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quizpal/quizpal/internal/daily"
	"github.com/quizpal/quizpal/internal/llm"
	"github.com/quizpal/quizpal/internal/messaging"
	"github.com/quizpal/quizpal/internal/puzzle"
	"github.com/quizpal/quizpal/internal/quiz"
	"github.com/quizpal/quizpal/internal/session"
	"github.com/quizpal/quizpal/internal/store"
	"github.com/quizpal/quizpal/internal/telegram"
)

// shutdownGrace bounds how long a running daily broadcast may delay exit.
const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the daily puzzle schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().Bool("no-daily", false, "Do not schedule the daily puzzle")
}

// runServe wires every component and blocks until the context ends.
func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	if err != nil {
		return fmt.Errorf("init LLM provider: %w", err)
	}
	qcfg := quiz.DefaultConfig()
	qcfg.Timeout = cfg.LLM.Timeout
	generator := quiz.NewClient(provider, qcfg, log)

	api, err := telegram.Dial(cfg.TelegramToken, cfg.TelegramEndpoint)
	if err != nil {
		return err
	}
	sender := telegram.NewClient(api)
	if cfg.Channel == nil {
		log.Warn("CHANNEL_ID not set, polls go to users only")
	}
	dispatcher := messaging.NewDispatcher(sender, cfg.Channel, log)

	conv := session.New(st.UserRepo(), generator, dispatcher, sender, log)
	bot := telegram.NewBot(api, sender, conv, log)

	noDaily, _ := cmd.Flags().GetBool("no-daily")
	if !noDaily {
		queue := puzzle.NewQueue(cfg.PuzzleFile, log)
		job := daily.NewJob(queue, st.UserRepo(), dispatcher, sender, cfg.DailyConfig(), log)
		sched, err := daily.NewScheduler(ctx, job, cfg.DailyTime, cfg.DailyLocation, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := contextWithTimeout(shutdownGrace)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	log.Info("quizpal starting", "provider", cfg.LLM.Provider, "model", provider.ModelID(), "db", cfg.Database)
	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	log.Info("quizpal stopped")
	return nil
}
