// Package telegram adapts the Telegram Bot API to the messaging and session
// packages.
package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/quizpal/quizpal/internal/messaging"
)

// pollTypeQuiz marks a poll with a single correct answer.
const pollTypeQuiz = "quiz"

// Client implements messaging.Sender over the Bot API.
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient wraps an authorized BotAPI.
func NewClient(api *tgbotapi.BotAPI) *Client {
	return &Client{api: api}
}

// Dial authorizes token against the Bot API. endpoint may be empty for the
// public API.
func Dial(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	return api, nil
}

func (c *Client) SendText(ctx context.Context, chat messaging.ChatRef, text string, kb messaging.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chat.ID, text)
	msg.ChannelUsername = chat.Username
	if kb != nil {
		msg.ReplyMarkup = inlineMarkup(kb)
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %s: %w", chat, err)
	}
	return nil
}

func (c *Client) SendPoll(ctx context.Context, chat messaging.ChatRef, poll messaging.Poll) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewPoll(chat.ID, poll.Question, poll.Options...)
	cfg.ChannelUsername = chat.Username
	cfg.Type = pollTypeQuiz
	cfg.IsAnonymous = poll.Anonymous
	cfg.CorrectOptionID = int64(poll.CorrectIndex)
	cfg.Explanation = poll.Explanation
	if _, err := c.api.Send(cfg); err != nil {
		return fmt.Errorf("send poll to %s: %w", chat, err)
	}
	return nil
}

func (c *Client) EditMarkup(ctx context.Context, ref messaging.MessageRef, kb messaging.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(ref.Chat.ID, ref.MessageID, inlineMarkup(kb))
	edit.ChannelUsername = ref.Chat.Username
	if _, err := c.api.Request(edit); err != nil {
		return fmt.Errorf("edit markup in %s: %w", ref.Chat, err)
	}
	return nil
}

func (c *Client) EditText(ctx context.Context, ref messaging.MessageRef, text string, kb messaging.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(ref.Chat.ID, ref.MessageID, text)
	edit.ChannelUsername = ref.Chat.Username
	if kb != nil {
		markup := inlineMarkup(kb)
		edit.ReplyMarkup = &markup
	}
	if _, err := c.api.Request(edit); err != nil {
		return fmt.Errorf("edit message in %s: %w", ref.Chat, err)
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func inlineMarkup(kb messaging.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
