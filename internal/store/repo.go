package store

import (
	"context"
	"time"
)

// User is a persisted bot user. Level is empty until the user picks one.
type User struct {
	ID          int64
	Username    string
	Level       string
	DailyPuzzle bool
	LastSeen    time.Time
}

// UserUpdate describes an upsert. Nil fields are left untouched on an
// existing row and take their column default on a new one. LastSeen is
// always refreshed.
type UserUpdate struct {
	ID          int64
	Username    *string
	Level       *string
	DailyPuzzle *bool
}

// UserRepo persists users and their preferences.
type UserRepo interface {
	// Upsert creates the user if missing and applies the non-nil fields.
	Upsert(ctx context.Context, u UserUpdate) error

	// Get returns the user or ErrNotFound.
	Get(ctx context.Context, id int64) (*User, error)

	// ListDailyPuzzle returns all users opted in to the daily puzzle,
	// ordered by id.
	ListDailyPuzzle(ctx context.Context) ([]User, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // created_at >= From
	To    time.Time // created_at <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	RequestID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	// Prompt and reply sizes. The text itself is never stored: it carries
	// the learner's notes and the generated questions.
	RequestBytes  int
	ResponseBytes int
}

// LLMRequestEvent is a recorded LLM call.
type LLMRequestEvent struct {
	ID        int64
	CreatedAt time.Time
	LLMRequestEventData
}

// LLMUsage aggregates calls grouped by a key (purpose or model).
type LLMUsage struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// EventRepo provides append and query access to the LLM audit log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns a single event by id or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates events per purpose label.
	LLMUsageByPurpose(ctx context.Context, opts QueryOpts) ([]LLMUsage, error)

	// LLMUsageByModel aggregates events per model.
	LLMUsageByModel(ctx context.Context, opts QueryOpts) ([]LLMUsage, error)
}
