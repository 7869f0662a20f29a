package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/quizpal/quizpal/internal/logger"
	"github.com/quizpal/quizpal/internal/quiz"
)

// DeliveryError reports a failed poll delivery. Private is the error from
// the user's chat, Channel the one from the broadcast copy; either may be
// nil.
type DeliveryError struct {
	Chat    ChatRef
	Private error
	Channel error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Private != nil && e.Channel != nil:
		return fmt.Sprintf("deliver poll to %s: %v; channel copy: %v", e.Chat, e.Private, e.Channel)
	case e.Private != nil:
		return fmt.Sprintf("deliver poll to %s: %v", e.Chat, e.Private)
	default:
		return fmt.Sprintf("deliver channel copy for %s: %v", e.Chat, e.Channel)
	}
}

func (e *DeliveryError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.Private, e.Channel} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// PrivateFailed reports whether the user's copy was lost.
func (e *DeliveryError) PrivateFailed() bool { return e.Private != nil }

// Dispatcher sends quiz items as polls to a user and, when configured, an
// anonymous copy to a broadcast channel.
type Dispatcher struct {
	sender  Sender
	channel *ChatRef
	log     *logger.Logger
}

// NewDispatcher creates a Dispatcher. A nil channel disables the broadcast
// copy.
func NewDispatcher(sender Sender, channel *ChatRef, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{sender: sender, channel: channel, log: log.With("component", "dispatcher")}
}

// Channel returns the broadcast channel, if any.
func (d *Dispatcher) Channel() (ChatRef, bool) {
	if d.channel == nil {
		return ChatRef{}, false
	}
	return *d.channel, true
}

// PrivateOnly returns a dispatcher sharing the sender that never copies to
// the channel.
func (d *Dispatcher) PrivateOnly() *Dispatcher {
	return &Dispatcher{sender: d.sender, log: d.log}
}

// Deliver sends item to target as a non-anonymous poll and, if a channel is
// configured, an anonymous copy to the channel whatever the first send's
// outcome. Any failure is returned as a *DeliveryError.
func (d *Dispatcher) Deliver(ctx context.Context, target ChatRef, item quiz.Item) error {
	var derr DeliveryError
	derr.Chat = target

	if err := d.sender.SendPoll(ctx, target, PollFromItem(item, false)); err != nil {
		d.log.Warn("send poll", "chat", target.String(), "error", err)
		derr.Private = err
	}
	if d.channel != nil {
		if err := d.sender.SendPoll(ctx, *d.channel, PollFromItem(item, true)); err != nil {
			d.log.Warn("send channel poll", "channel", d.channel.String(), "error", err)
			derr.Channel = err
		}
	}

	if derr.Private != nil || derr.Channel != nil {
		return &derr
	}
	return nil
}

// Broadcast sends only the anonymous channel copy. It is a no-op without a
// channel.
func (d *Dispatcher) Broadcast(ctx context.Context, item quiz.Item) error {
	if d.channel == nil {
		return nil
	}
	if err := d.sender.SendPoll(ctx, *d.channel, PollFromItem(item, true)); err != nil {
		return &DeliveryError{Chat: *d.channel, Channel: err}
	}
	return nil
}

// PollFromItem renders a quiz item as a poll.
func PollFromItem(item quiz.Item, anonymous bool) Poll {
	return Poll{
		Question:     item.Question,
		Options:      append([]string(nil), item.Options...),
		CorrectIndex: item.AnswerIndex,
		Explanation:  item.Explanation,
		Anonymous:    anonymous,
	}
}

// IsPrivateFailure reports whether err is a delivery error that lost the
// user's copy. Other errors count as private failures too.
func IsPrivateFailure(err error) bool {
	if err == nil {
		return false
	}
	var derr *DeliveryError
	if errors.As(err, &derr) {
		return derr.PrivateFailed()
	}
	return true
}
