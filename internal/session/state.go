package session

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/quizpal/quizpal/internal/store"
)

// Conversation states. QuizDelivered is transient: a finished quiz always
// falls back to AwaitingNotes.
const (
	StateUnregistered  = "unregistered"
	StateLevelSelected = "level_selected"
	StateAwaitingNotes = "awaiting_notes"
	StateQuizDelivered = "quiz_delivered"
)

// Conversation events.
const (
	EventStart       = "start"
	EventChooseLevel = "choose_level"
	EventSubmitText  = "submit_text"
	EventDelivered   = "delivered"
)

var conversationEvents = fsm.Events{
	{Name: EventStart, Src: []string{StateUnregistered, StateLevelSelected, StateAwaitingNotes}, Dst: StateLevelSelected},
	{Name: EventChooseLevel, Src: []string{StateUnregistered, StateLevelSelected, StateAwaitingNotes}, Dst: StateAwaitingNotes},
	{Name: EventSubmitText, Src: []string{StateAwaitingNotes}, Dst: StateQuizDelivered},
	{Name: EventDelivered, Src: []string{StateQuizDelivered}, Dst: StateAwaitingNotes},
}

// StateOf derives the conversation state from a stored user. A nil user has
// never talked to the bot.
func StateOf(u *store.User) string {
	switch {
	case u == nil:
		return StateUnregistered
	case u.Level == "":
		return StateLevelSelected
	default:
		return StateAwaitingNotes
	}
}

// newMachine rebuilds the per-user state machine from storage. Nothing is
// kept between requests.
func newMachine(u *store.User, callbacks fsm.Callbacks) *fsm.FSM {
	if callbacks == nil {
		callbacks = fsm.Callbacks{}
	}
	return fsm.NewFSM(StateOf(u), conversationEvents, callbacks)
}

// fire triggers an event, ignoring the no-op error looplab/fsm reports when
// the source and destination states match.
func fire(ctx context.Context, m *fsm.FSM, event string) error {
	err := m.Event(ctx, event)
	var noop fsm.NoTransitionError
	if errors.As(err, &noop) {
		return nil
	}
	return err
}
