// Package daily broadcasts puzzles from the puzzle queue to opted-in users
// on a schedule.
package daily

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quizpal/quizpal/internal/llm"
	"github.com/quizpal/quizpal/internal/logger"
	"github.com/quizpal/quizpal/internal/messaging"
	"github.com/quizpal/quizpal/internal/quiz"
	"github.com/quizpal/quizpal/internal/store"
)

// IntroText precedes each user's puzzles.
const IntroText = "It's time for your daily English puzzle! 🧩🏫"

// Source yields puzzles in order.
type Source interface {
	PopFront(ctx context.Context) (quiz.Item, bool)
}

// Recipients lists the users who opted in.
type Recipients interface {
	ListDailyPuzzle(ctx context.Context) ([]store.User, error)
}

// Config tunes a run.
type Config struct {
	// PuzzlesPerRun is how many puzzles each run pops and sends.
	PuzzlesPerRun int

	// Concurrency bounds how many users are served at once.
	Concurrency int
}

// DefaultConfig returns one puzzle per run and four concurrent recipients.
func DefaultConfig() Config {
	return Config{PuzzlesPerRun: 1, Concurrency: 4}
}

// Report summarizes a run.
type Report struct {
	RunID      string
	Puzzles    int
	Recipients int
	Delivered  int
	Failed     int
	Broadcast  bool
	Skipped    string // non-empty when the run stopped early
	Started    time.Time
	Finished   time.Time
}

// Job is one daily broadcast.
type Job struct {
	source     Source
	recipients Recipients
	dispatcher *messaging.Dispatcher
	sender     messaging.Sender
	config     Config
	log        *logger.Logger
}

// NewJob creates a Job. The dispatcher's channel, if any, receives each
// puzzle once per run rather than once per user.
func NewJob(source Source, recipients Recipients, dispatcher *messaging.Dispatcher, sender messaging.Sender, cfg Config, log *logger.Logger) *Job {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.PuzzlesPerRun < 1 {
		cfg.PuzzlesPerRun = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Job{
		source:     source,
		recipients: recipients,
		dispatcher: dispatcher,
		sender:     sender,
		config:     cfg,
		log:        log.With("component", "daily"),
	}
}

// Run pops the day's puzzles and sends them to every opted-in user. A
// failure for one user never affects another.
func (j *Job) Run(ctx context.Context) Report {
	rep := Report{RunID: uuid.NewString(), Started: time.Now()}
	ctx = llm.WithRequestID(ctx, rep.RunID)
	log := j.log.With("run_id", rep.RunID)

	log.Info("daily run starting")

	var puzzles []quiz.Item
	for len(puzzles) < j.config.PuzzlesPerRun {
		item, ok := j.source.PopFront(ctx)
		if !ok {
			break
		}
		puzzles = append(puzzles, item)
	}
	rep.Puzzles = len(puzzles)
	if len(puzzles) == 0 {
		log.Warn("no puzzle data found, skipping run")
		rep.Skipped = "no puzzles"
		rep.Finished = time.Now()
		return rep
	}

	if _, ok := j.dispatcher.Channel(); ok {
		rep.Broadcast = true
		for i, p := range puzzles {
			if err := j.dispatcher.Broadcast(ctx, p); err != nil {
				rep.Broadcast = false
				log.Error("broadcast puzzle", "puzzle", i, "error", err)
			}
		}
	}

	users, err := j.recipients.ListDailyPuzzle(ctx)
	if err != nil {
		log.Error("list daily puzzle users", "error", err)
		rep.Skipped = "user list unavailable"
		rep.Finished = time.Now()
		return rep
	}
	rep.Recipients = len(users)
	if len(users) == 0 {
		log.Info("no users opted in")
		rep.Skipped = "no recipients"
		rep.Finished = time.Now()
		return rep
	}

	private := j.dispatcher.PrivateOnly()
	var delivered, failed atomic.Int64

	// Workers never return an error so one user cannot cancel the rest.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)
	for _, u := range users {
		g.Go(func() error {
			if j.deliverTo(gctx, private, u, puzzles, log) {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Delivered = int(delivered.Load())
	rep.Failed = int(failed.Load())
	rep.Finished = time.Now()
	log.Info("daily run finished",
		"puzzles", rep.Puzzles, "recipients", rep.Recipients,
		"delivered", rep.Delivered, "failed", rep.Failed,
		"duration", rep.Finished.Sub(rep.Started).String())
	return rep
}

func (j *Job) deliverTo(ctx context.Context, d *messaging.Dispatcher, u store.User, puzzles []quiz.Item, log *logger.Logger) bool {
	chat := messaging.Chat(u.ID)
	if err := j.sender.SendText(ctx, chat, IntroText, nil); err != nil {
		log.Error("send daily intro", "user_id", u.ID, "error", err)
		return false
	}
	for i, p := range puzzles {
		if err := d.Deliver(ctx, chat, p); err != nil {
			log.Error("send daily puzzle", "user_id", u.ID, "puzzle", i, "error", err)
			return false
		}
	}
	log.Debug("sent daily puzzle", "user_id", u.ID)
	return true
}
