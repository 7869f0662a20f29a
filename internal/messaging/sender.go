// Package messaging defines the chat transport boundary and the poll
// dispatcher built on it.
package messaging

import (
	"context"
	"strconv"
)

// ChatRef identifies a chat. Public channels may be addressed by
// "@username" instead of a numeric id.
type ChatRef struct {
	ID       int64
	Username string
}

// Chat returns a ref for a numeric chat id.
func Chat(id int64) ChatRef { return ChatRef{ID: id} }

// ParseChatRef accepts a numeric id or an @username. Empty input yields
// false.
func ParseChatRef(s string) (ChatRef, bool) {
	if s == "" {
		return ChatRef{}, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ChatRef{ID: id}, true
	}
	if s[0] != '@' {
		s = "@" + s
	}
	return ChatRef{Username: s}, true
}

func (c ChatRef) String() string {
	if c.Username != "" {
		return c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// MessageRef points at a message previously sent to a chat.
type MessageRef struct {
	Chat      ChatRef
	MessageID int
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, row by row. A nil Keyboard means no
// markup.
type Keyboard [][]Button

// Poll is a single-answer quiz poll.
type Poll struct {
	Question     string
	Options      []string
	CorrectIndex int
	Explanation  string
	Anonymous    bool
}

// Sender is the outbound side of the messaging platform.
type Sender interface {
	SendText(ctx context.Context, chat ChatRef, text string, kb Keyboard) error
	SendPoll(ctx context.Context, chat ChatRef, poll Poll) error
	EditMarkup(ctx context.Context, msg MessageRef, kb Keyboard) error
	EditText(ctx context.Context, msg MessageRef, text string, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
