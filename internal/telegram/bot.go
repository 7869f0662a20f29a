package telegram

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/quizpal/quizpal/internal/llm"
	"github.com/quizpal/quizpal/internal/logger"
	"github.com/quizpal/quizpal/internal/messaging"
	"github.com/quizpal/quizpal/internal/session"
)

// Conversation is the session surface the bot routes updates to.
type Conversation interface {
	Start(ctx context.Context, a session.Actor) error
	Settings(ctx context.Context, a session.Actor) error
	Help(ctx context.Context, a session.Actor) error
	SubmitText(ctx context.Context, a session.Actor, text string) error
	HandleCallback(ctx context.Context, a session.Actor, msg messaging.MessageRef, data string) error
}

// pollTimeout is the long-poll timeout in seconds.
const pollTimeout = 60

// Bot reads updates and hands each to the conversation in its own
// goroutine. Updates from one chat are handled one at a time.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender messaging.Sender
	conv   Conversation
	log    *logger.Logger
	locks  *keyedMutex
	wg     sync.WaitGroup
}

// NewBot creates a Bot. api may be nil when only HandleUpdate is used.
func NewBot(api *tgbotapi.BotAPI, sender messaging.Sender, conv Conversation, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		api:    api,
		sender: sender,
		conv:   conv,
		log:    log.With("component", "telegram"),
		locks:  newKeyedMutex(),
	}
}

// Run long-polls until ctx is canceled, then waits for in-flight updates.
// Updates queued while the bot was offline are dropped.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return errors.New("telegram bot: no API client")
	}
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("drop pending updates: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(cfg)
	b.log.Info("bot is polling", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			// In-flight updates finish even when shutdown begins.
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(context.WithoutCancel(ctx), update)
			}()
		}
	}
}

// HandleUpdate routes one update. Panics are recovered and reported to the
// chat.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	a, ok := actorOf(update)
	if !ok {
		return
	}
	traceID := uuid.NewString()
	ctx = llm.WithRequestID(ctx, traceID)
	log := b.log.With("update_id", update.UpdateID, "trace_id", traceID, "chat", a.Chat.String())

	unlock := b.locks.Lock(a.Chat.ID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic handling update", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			b.apologize(ctx, a, log)
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, a, update.CallbackQuery, log)
	case update.Message.IsCommand():
		err = b.handleCommand(ctx, a, update.Message.Command())
	case strings.TrimSpace(update.Message.Text) != "":
		log.Info("quiz requested", "user_id", a.UserID)
		err = b.conv.SubmitText(ctx, a, update.Message.Text)
	default:
		log.Debug("ignoring non-text message")
	}
	if err != nil {
		log.Error("handle update", "error", err)
		b.apologize(ctx, a, log)
	}
}

func (b *Bot) handleCommand(ctx context.Context, a session.Actor, cmd string) error {
	switch cmd {
	case "start":
		return b.conv.Start(ctx, a)
	case "settings":
		return b.conv.Settings(ctx, a)
	case "help":
		return b.conv.Help(ctx, a)
	default:
		return b.sender.SendText(ctx, a.Chat, session.UnknownCommandText, nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, a session.Actor, q *tgbotapi.CallbackQuery, log *logger.Logger) error {
	if err := b.sender.AnswerCallback(ctx, q.ID, ""); err != nil {
		log.Warn("answer callback", "error", err)
	}
	if q.Message == nil {
		log.Warn("callback without message", "data", q.Data)
		return nil
	}
	ref := messaging.MessageRef{Chat: a.Chat, MessageID: q.Message.MessageID}
	err := b.conv.HandleCallback(ctx, a, ref, q.Data)
	if errors.Is(err, session.ErrUnknownCallback) {
		log.Warn("unknown callback", "data", q.Data)
		return nil
	}
	return err
}

func (b *Bot) apologize(ctx context.Context, a session.Actor, log *logger.Logger) {
	if err := b.sender.SendText(context.WithoutCancel(ctx), a.Chat, session.InternalErrorText, nil); err != nil {
		log.Warn("send error message", "error", err)
	}
}

// actorOf extracts who sent an update and where. Updates without a chat,
// such as inline queries, are ignored.
func actorOf(update tgbotapi.Update) (session.Actor, bool) {
	var (
		from *tgbotapi.User
		chat *tgbotapi.Chat
	)
	switch {
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
		if update.CallbackQuery.Message != nil {
			chat = update.CallbackQuery.Message.Chat
		}
	case update.Message != nil:
		from = update.Message.From
		chat = update.Message.Chat
	}
	if from == nil || chat == nil {
		return session.Actor{}, false
	}

	name := from.UserName
	if name == "" {
		name = from.FirstName
	}
	return session.Actor{UserID: from.ID, Username: name, Chat: messaging.Chat(chat.ID)}, true
}
