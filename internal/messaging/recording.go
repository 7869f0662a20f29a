package messaging

import (
	"context"
	"sync"
)

// Sent is one call recorded by RecordingSender.
type Sent struct {
	Kind       string // "text", "poll", "edit_markup", "edit_text", "callback"
	Chat       ChatRef
	Message    MessageRef
	Text       string
	Keyboard   Keyboard
	Poll       Poll
	CallbackID string
}

// RecordingSender is an in-memory Sender for tests and dry runs. FailOn,
// when set, decides per call whether to fail with the returned error.
type RecordingSender struct {
	mu   sync.Mutex
	sent []Sent

	FailOn func(s Sent) error
}

func (r *RecordingSender) record(s Sent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailOn != nil {
		if err := r.FailOn(s); err != nil {
			return err
		}
	}
	r.sent = append(r.sent, s)
	return nil
}

func (r *RecordingSender) SendText(ctx context.Context, chat ChatRef, text string, kb Keyboard) error {
	return r.record(Sent{Kind: "text", Chat: chat, Text: text, Keyboard: kb})
}

func (r *RecordingSender) SendPoll(ctx context.Context, chat ChatRef, poll Poll) error {
	return r.record(Sent{Kind: "poll", Chat: chat, Poll: poll})
}

func (r *RecordingSender) EditMarkup(ctx context.Context, msg MessageRef, kb Keyboard) error {
	return r.record(Sent{Kind: "edit_markup", Chat: msg.Chat, Message: msg, Keyboard: kb})
}

func (r *RecordingSender) EditText(ctx context.Context, msg MessageRef, text string, kb Keyboard) error {
	return r.record(Sent{Kind: "edit_text", Chat: msg.Chat, Message: msg, Text: text, Keyboard: kb})
}

func (r *RecordingSender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return r.record(Sent{Kind: "callback", CallbackID: callbackID, Text: text})
}

// Sent returns a copy of every successful call in order.
func (r *RecordingSender) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Of returns the successful calls of one kind.
func (r *RecordingSender) Of(kind string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// To returns the successful calls addressed to chat.
func (r *RecordingSender) To(chat ChatRef) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Chat == chat {
			out = append(out, s)
		}
	}
	return out
}
