package daily

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quizpal/quizpal/internal/logger"
)

// DefaultTime is when the daily puzzle goes out when nothing else is
// configured.
const DefaultTime = "07:30"

// Runner is anything with a Run method shaped like Job's.
type Runner interface {
	Run(ctx context.Context) Report
}

// Scheduler fires a Runner once a day. Overlapping runs are skipped.
type Scheduler struct {
	cron  *cron.Cron
	entry cron.EntryID
	spec  string
	log   *logger.Logger
}

// NewScheduler schedules r daily at clock ("HH:MM") in loc. ctx is passed to
// every run; cancel it to abort a run in flight.
func NewScheduler(ctx context.Context, r Runner, clock string, loc *time.Location, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return nil, err
	}

	log = log.With("component", "scheduler")
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := c.AddFunc(spec, func() { r.Run(ctx) })
	if err != nil {
		return nil, fmt.Errorf("schedule daily puzzle %q: %w", spec, err)
	}
	return &Scheduler{cron: c, entry: id, spec: spec, log: log}, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("daily puzzle scheduled", "spec", s.spec, "next", s.Next().Format(time.RFC3339))
}

// Stop stops the scheduler and waits for a running job, or ctx, to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("daily run still in progress at shutdown")
	}
}

// Next returns the next scheduled run. It is zero until Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Spec returns the cron expression in use.
func (s *Scheduler) Spec() string { return s.spec }

// ParseClock parses "HH:MM" on a 24-hour clock. Empty input means
// DefaultTime.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultTime
	}
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, herr := strconv.Atoi(h)
	minute, merr := strconv.Atoi(m)
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 || len(m) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return hour, minute, nil
}

// cronLogger routes cron's own logging into ours.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
