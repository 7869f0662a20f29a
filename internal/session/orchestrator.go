// Package session drives the per-user conversation: level choice, quiz
// requests and the settings sub-flow.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/looplab/fsm"

	"github.com/quizpal/quizpal/internal/logger"
	"github.com/quizpal/quizpal/internal/messaging"
	"github.com/quizpal/quizpal/internal/quiz"
	"github.com/quizpal/quizpal/internal/store"
)

// QuizGenerator produces a quiz for a rendered prompt. It never fails;
// problems come back as a degraded result.
type QuizGenerator interface {
	Generate(ctx context.Context, prompt string) quiz.Result
}

// Deliverer sends one quiz item to a chat.
type Deliverer interface {
	Deliver(ctx context.Context, target messaging.ChatRef, item quiz.Item) error
}

// Actor is the user behind an update and the chat it came from.
type Actor struct {
	UserID   int64
	Username string
	Chat     messaging.ChatRef
}

// Orchestrator handles conversation events. It holds no per-user state;
// every call rebuilds the user's state machine from the store.
type Orchestrator struct {
	users      store.UserRepo
	generator  QuizGenerator
	dispatcher Deliverer
	sender     messaging.Sender
	log        *logger.Logger
}

// New creates an Orchestrator.
func New(users store.UserRepo, generator QuizGenerator, dispatcher Deliverer, sender messaging.Sender, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		users:      users,
		generator:  generator,
		dispatcher: dispatcher,
		sender:     sender,
		log:        log.With("component", "session"),
	}
}

// Start records the user and presents the level choices.
func (o *Orchestrator) Start(ctx context.Context, a Actor) error {
	log := o.log.With("user_id", a.UserID)

	u := o.lookup(ctx, a.UserID)
	m := o.machine(u, log)
	if err := o.users.Upsert(ctx, store.UserUpdate{ID: a.UserID, Username: username(a)}); err != nil {
		log.Error("record user", "error", err)
	}
	if err := fire(ctx, m, EventStart); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return o.sender.SendText(ctx, a.Chat, WelcomeText, LevelKeyboard())
}

// ChooseLevel persists the level picked from the keyboard attached to msg
// and replaces that message with a confirmation.
func (o *Orchestrator) ChooseLevel(ctx context.Context, a Actor, msg messaging.MessageRef, raw string) error {
	log := o.log.With("user_id", a.UserID)

	level, err := quiz.ParseLevel(raw)
	if err != nil {
		log.Warn("unknown level choice", "level", raw)
		return o.sender.EditText(ctx, msg, LevelUnknownText, LevelKeyboard())
	}

	u := o.lookup(ctx, a.UserID)
	m := o.machine(u, log)
	lv := string(level)
	if err := o.users.Upsert(ctx, store.UserUpdate{ID: a.UserID, Username: username(a), Level: &lv}); err != nil {
		log.Error("save level", "level", lv, "error", err)
		return o.sender.EditText(ctx, msg, LevelSaveFailedText, nil)
	}
	if err := fire(ctx, m, EventChooseLevel); err != nil {
		return fmt.Errorf("choose level: %w", err)
	}
	log.Info("level chosen", "level", lv)
	return o.sender.EditText(ctx, msg, fmt.Sprintf(LevelSetTextFormat, lv), nil)
}

// SubmitText turns free text into a quiz. Without a stored level the user
// is asked to pick one and no quiz is generated.
func (o *Orchestrator) SubmitText(ctx context.Context, a Actor, text string) error {
	log := o.log.With("user_id", a.UserID)

	if err := o.users.Upsert(ctx, store.UserUpdate{ID: a.UserID, Username: username(a)}); err != nil {
		log.Error("refresh user", "error", err)
	}
	u := o.lookup(ctx, a.UserID)
	m := o.machine(u, log)

	if !m.Can(EventSubmitText) {
		log.Info("quiz requested without a level")
		return o.sender.SendText(ctx, a.Chat, LevelRequiredText, nil)
	}
	level, err := quiz.ParseLevel(u.Level)
	if err != nil {
		// The CHECK constraint makes this unreachable short of manual edits.
		log.Warn("stored level unreadable", "level", u.Level)
		return o.sender.SendText(ctx, a.Chat, LevelRequiredText, nil)
	}

	if err := o.sender.SendText(ctx, a.Chat, AcknowledgeText, nil); err != nil {
		log.Warn("send acknowledgement", "error", err)
	}
	if err := fire(ctx, m, EventSubmitText); err != nil {
		return fmt.Errorf("submit text: %w", err)
	}
	defer func() {
		if err := fire(ctx, m, EventDelivered); err != nil {
			log.Warn("finish quiz", "error", err)
		}
	}()

	log.Info("generating quiz", "level", level, "input_len", len(text))
	res := o.generator.Generate(ctx, quiz.BuildPrompt(level, text))
	if res.Degraded() || len(res.Quiz) == 0 {
		log.Warn("no quiz to deliver", "outcome", res.Outcome.String(), "reason", string(res.Reason))
		return o.sender.SendText(ctx, a.Chat, res.Notes.Message, nil)
	}

	for i, item := range res.Quiz {
		err := o.dispatcher.Deliver(ctx, a.Chat, item)
		if err == nil {
			continue
		}
		if !messaging.IsPrivateFailure(err) {
			log.Warn("channel copy failed", "item", i, "error", err)
			continue
		}
		log.Error("deliver quiz item", "item", i, "error", err)
		if err := o.sender.SendText(ctx, a.Chat, PollFailedText, nil); err != nil {
			log.Warn("send apology", "error", err)
		}
		break
	}

	return o.sender.SendText(ctx, a.Chat, ComposeFollowUp(res), nil)
}

// Settings sends the current level and daily status with the settings
// keyboard.
func (o *Orchestrator) Settings(ctx context.Context, a Actor) error {
	log := o.log.With("user_id", a.UserID)

	if err := o.users.Upsert(ctx, store.UserUpdate{ID: a.UserID, Username: username(a)}); err != nil {
		log.Error("refresh user", "error", err)
	}
	level, daily := LevelNotSet, true
	if u := o.lookup(ctx, a.UserID); u != nil {
		if u.Level != "" {
			level = u.Level
		}
		daily = u.DailyPuzzle
	}
	return o.sender.SendText(ctx, a.Chat, SettingsText(level, daily), SettingsKeyboard())
}

// SettingsText renders the settings summary.
func SettingsText(level string, daily bool) string {
	mark := "❌"
	if daily {
		mark = "✅"
	}
	return fmt.Sprintf(SettingsTextFormat, level, mark)
}

// SettingsLevelKeyboard swaps the settings keyboard for the level choices.
func (o *Orchestrator) SettingsLevelKeyboard(ctx context.Context, msg messaging.MessageRef) error {
	return o.sender.EditMarkup(ctx, msg, LevelKeyboard())
}

// SettingsDailyKeyboard swaps the settings keyboard for the daily toggle.
func (o *Orchestrator) SettingsDailyKeyboard(ctx context.Context, msg messaging.MessageRef) error {
	return o.sender.EditMarkup(ctx, msg, DailyKeyboard())
}

// SetDailyPuzzle stores the opt-in flag and confirms it. The conversation
// state is untouched.
func (o *Orchestrator) SetDailyPuzzle(ctx context.Context, a Actor, enabled bool) error {
	log := o.log.With("user_id", a.UserID)

	if err := o.users.Upsert(ctx, store.UserUpdate{ID: a.UserID, DailyPuzzle: &enabled}); err != nil {
		log.Error("save daily puzzle", "enabled", enabled, "error", err)
		return o.sender.SendText(ctx, a.Chat, SettingSaveFailedText, nil)
	}
	log.Info("daily puzzle updated", "enabled", enabled)

	text := DailyOffText
	if enabled {
		text = DailyOnText
	}
	return o.sender.SendText(ctx, a.Chat, text, nil)
}

// Help sends usage instructions.
func (o *Orchestrator) Help(ctx context.Context, a Actor) error {
	return o.sender.SendText(ctx, a.Chat, HelpText, nil)
}

// ErrUnknownCallback is returned for callback data no handler claims.
var ErrUnknownCallback = errors.New("unknown callback")

// HandleCallback routes inline keyboard data. msg is the message carrying
// the keyboard.
func (o *Orchestrator) HandleCallback(ctx context.Context, a Actor, msg messaging.MessageRef, data string) error {
	switch {
	case strings.HasPrefix(data, CallbackLevelPrefix):
		return o.ChooseLevel(ctx, a, msg, strings.TrimPrefix(data, CallbackLevelPrefix))
	case data == CallbackSettingsLevel:
		return o.SettingsLevelKeyboard(ctx, msg)
	case data == CallbackSettingsDaily:
		return o.SettingsDailyKeyboard(ctx, msg)
	case data == CallbackDailyOn:
		return o.SetDailyPuzzle(ctx, a, true)
	case data == CallbackDailyOff:
		return o.SetDailyPuzzle(ctx, a, false)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCallback, data)
	}
}

// lookup returns the stored user, or nil when missing or unreadable. A
// read failure is treated as "no level" rather than an error.
func (o *Orchestrator) lookup(ctx context.Context, id int64) *store.User {
	u, err := o.users.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			o.log.Error("load user", "user_id", id, "error", err)
		}
		return nil
	}
	return u
}

func (o *Orchestrator) machine(u *store.User, log *logger.Logger) *fsm.FSM {
	return newMachine(u, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			log.Debug("conversation state", "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	})
}

func username(a Actor) *string {
	if a.Username == "" {
		return nil
	}
	return &a.Username
}
